// Package model defines the resolved configuration model for the launcher:
// the Suite of experiments decoded from the user's .hcl files, the Defaults
// block, and the Experiment unit of work. The model is the single source of
// truth for the dag and runner packages; by the time it exists, every path
// has been defaulted and resolved.
package model
