package common

// UnknownStr is the fallback name for enum values with no String case.
const UnknownStr = "unknown"
