// Command lectern compiles miscue-tolerant decoding graphs for oral reading
// verification. See the compile subcommand for the full pipeline; the other
// subcommands inspect grammars, published tables, configuration, and run
// history.
package main
