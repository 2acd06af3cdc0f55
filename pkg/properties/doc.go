// Package properties fetches one page of account properties from the node
// and projects it into view models for the properties table.
//
// A Fetcher asks for itemsPerPage+1 rows. When the extra row arrives it is
// dropped and the page reports HasMore. Each remaining row becomes a
// PropertyViewModel:
//
//   - the counterparty link points at the setter (incoming) or the
//     recipient (outgoing)
//   - property and value are HTML-escaped once and carried as template.HTML
//   - actions are typed intents: outgoing rows get update and delete,
//     incoming rows get delete only
//
// Failures of the node call are returned as *RequestError.
package properties
