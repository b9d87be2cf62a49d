// Package stylesearch provides an embedded Go client for the stylesearch
// product retrieval engine: hybrid lexical/vector search over a fashion
// catalog stored in Postgres with a Redis vector index.
//
//	client, _ := stylesearch.New(ctx,
//	    stylesearch.WithPostgres("postgres://localhost/stylesearch"),
//	    stylesearch.WithRedis("localhost:6379", ""),
//	    stylesearch.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, stylesearch.SearchRequest{
//	    Query: "黒いワンピースを5000円以下で",
//	})
//
// Without an embedder, hybrid and vector searches degrade to lexical
// retrieval over the catalog.
package stylesearch
