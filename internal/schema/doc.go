// Package schema declares document classes and the requirements that
// constrain their fields, including the element schema of document sets.
//
// # Requirement keys
//
// Requirements are keyed by field path relative to the owning class:
//
//	title            a plain field
//	author           an embedded document field
//	comments         a document set field
//	comments.$       the element schema of the set (any index)
//	comments.$.body  a field of every element
//
// The "$" segment is the dynamic index: it matches every numeric index.
// When a document hands requirements down to a child it scopes them, so the
// set behind "comments" sees "$" and "$.body", and each element sees "body".
//
// # Schema files
//
// Classes can be declared in YAML:
//
//	version: "1"
//	classes:
//	  - name: Comment
//	    collection: comments
//	    requirements:
//	      body:
//	        required: true
//	  - name: Post
//	    collection: posts
//	    requirements:
//	      comments: [DocumentSet]
//	      comments.$:
//	        document: Comment
//	        as_reference: true
//	        validators:
//	          - name: maxlen
//	            field: body
//	            value: 140
//
// or in HCL:
//
//	class "Post" {
//	  collection = "posts"
//	  requirement "comments.$" {
//	    document     = "Comment"
//	    as_reference = true
//	    validator "maxlen" {
//	      field = "body"
//	      value = 140
//	    }
//	  }
//	}
//
// Class names are resolved against a Registry when the file is built, so a
// typo surfaces once at load time instead of on every element access.
package schema
