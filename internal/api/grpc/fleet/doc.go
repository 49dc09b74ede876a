// Package fleet implements the gRPC transport for the dispatch engine.
//
// The service is declared by hand in service.go and carries protobuf
// well-known types (StringValue, ListValue, Struct, Empty), so neither side
// needs generated code. wire.go converts between those messages and domain
// types and is shared by the server and the client.
package fleet
