// Package tools defines the knowledge-base tools loreseek serves.
//
// Four search tools run semantic retrieval over the code, client code,
// gamedata, and docs tables; four stats tools report aggregate coverage
// for the same tables. RegisterAll wires the full set into a registry,
// which is the only place tool names are bound to handlers.
package tools
