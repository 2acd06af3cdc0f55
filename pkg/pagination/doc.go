// Package pagination provides page window arithmetic and sequential page
// walking for node list endpoints.
//
// Node list calls (getAccountProperties and friends) take an inclusive
// firstIndex/lastIndex pair and report no total count. A page of N items is
// therefore requested as N+1 rows: the extra row is a sentinel that proves a
// next page exists and is dropped before the page is shown.
//
// Example usage:
//
//	w, err := pagination.NewWindow(2, 10) // firstIndex=10, lastIndex=20
//	rows, err := fetch(ctx, w)
//	items, hasMore := pagination.Trim(rows, w.PerPage)
//
// Walk and CollectAll repeat this page by page until a page without a
// sentinel arrives:
//
//	all, err := pagination.CollectAll(ctx, pagination.DefaultConfig(), fetch)
//
// Pages are fetched one after another. A later page's window depends on the
// previous page carrying a sentinel, so there is nothing to fan out.
package pagination
