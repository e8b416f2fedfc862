// Package diagnostic collects the problems found while loading schema
// declarations: hard errors that stop a schema from being registered, and
// warnings about declarations that load but cannot take effect.
//
// Diagnostics raised by the HCL parser are converted with FromHCL so both
// schema formats report through the same type.
package diagnostic
