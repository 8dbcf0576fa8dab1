// Package tensordex provides an embedded Go client for the tensordex
// tensor search engine backed by Redis with the search and JSON modules.
//
// Indexes are semi-structured: fields are registered as documents introduce
// them, and string fields listed in tensorFields are chunked and vectorized
// for semantic retrieval.
//
//	client, _ := tensordex.New(ctx,
//	    tensordex.WithRedis("localhost:6379", ""),
//	    tensordex.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	client.Indexes().Create(ctx, "movies", nil)
//	client.Documents("movies").Add(ctx, []map[string]any{
//	    {"_id": "m1", "title": "Arrival", "plot": "A linguist...", "year": int64(2016)},
//	}, []string{"plot"})
//	page, _ := client.Search("movies").Do(ctx, tensordex.SearchParams{
//	    Query:  "first contact with aliens",
//	    Method: tensordex.MethodHybrid,
//	})
package tensordex
