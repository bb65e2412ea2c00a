// Package driver runs the resolve pipeline over declaration files: load,
// decode, bind, resolve every constraint group and collect per-parameter
// facts. Files and the groups inside a file are processed in parallel.
package driver
