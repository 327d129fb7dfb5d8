// Package cli is the qborelay command-line client.
//
// Each invocation runs one command against the relay's gRPC tool surface
// and prints the reply as indented JSON:
//
//	qborelay [flags] companies
//	qborelay [flags] connect
//	qborelay [flags] query <realm-id> <sql>
//	qborelay [flags] query-all [-limit n] <sql>
//	qborelay [flags] export [-limit n] [-o dir] <sql>
//
// The bearer token comes from -t, $QBORELAY_TOKEN or, on a terminal, a
// prompt without echo. An empty answer sends no token.
package cli
