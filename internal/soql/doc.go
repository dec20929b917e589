// Package soql renders, parses, and builds the object-query language
// statements sent to the query endpoint.
//
// Rendering is deterministic and round-trips through Parse for canonical
// text:
//
//	q := soql.NewSelect("Account", "Id", "Name").
//		Where("Industry", "=", "Banking").
//		OrderBy("Name", "").
//		Build()
//	q.Text() // SELECT Id, Name FROM Account WHERE Industry = 'Banking' ORDER BY Name ASC
package soql
