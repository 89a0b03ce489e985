// Package dag is the execution layer of the launcher. It is responsible for
// taking a loaded Suite, building a Directed Acyclic Graph of experiments,
// and executing them concurrently according to their declared dependencies.
package dag
