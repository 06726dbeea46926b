// Package dali is a small client for the SurrealDB HTTP query endpoint (/sql),
// plus a Bridge that exposes the database to AI agents through the Model
// Context Protocol (MCP).
//
// # Client
//
// A Client is built from a ClientBuilder that starts from the defaults
// (localhost:8000, root/root, namespace test, database test). Each call to
// Execute posts the query verbatim to a caller-supplied URI with Basic-Auth,
// NS, and DB headers and returns the decoded JSON body:
//
//	client, err := dali.NewClientBuilder().
//		Host("db.internal").
//		Username("agent").
//		Password(os.Getenv("DB_PASSWORD")).
//		Namespace("app").
//		Database("prod").
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	v, err := client.Execute(client.SQLEndpoint(), "SELECT * FROM person LIMIT 10;")
//
// Execute does not derive the URI from Host and Port; use SQLEndpoint for
// that. Every failure is an *ExecutionError. Query performs the same request
// and decodes one Response per statement.
//
// # Bridge
//
// The Bridge wraps a Client with a query pipeline: concurrency limit,
// length check, before-query hooks, SurrealQL protection rules (all blocked
// by default), per-pattern timeouts, after-query hooks, sanitization, and
// result truncation. Errors never escape as Go errors from Query; they are
// placed in QueryOutput.Error together with any matching error prompts.
//
//	bridge := dali.New(client, dali.Config{ReadOnly: true}, logger)
//	output := bridge.Query(ctx, dali.QueryInput{Query: "SELECT * FROM person LIMIT 10"})
//
//	// Or register as MCP tools
//	dali.RegisterMCPTools(mcpServer, bridge)
//
// # Hooks
//
// BeforeQuery and AfterQuery hooks run as a middleware chain around query
// execution. Implement [BeforeQueryHook] and [AfterQueryHook] for native Go
// hooks:
//
//	type AuditHook struct{}
//
//	func (h *AuditHook) Run(ctx context.Context, query string) (string, error) {
//		log.Printf("query: %s", query)
//		return query, nil // return modified query or original
//	}
//
// Unlike command-based hooks (server mode), Go hooks have no regex pattern
// matching; the hook function itself decides whether to act.
package dali
