// Package lang wraps the two language-preparation collaborators: the lexicon
// extender, which grows the base pronunciation dictionary to cover every
// prompt word plus the rubbish token, and the language-directory builder,
// which emits the symbol tables, the disambiguated lexicon transducer, and
// the disambiguation metadata.
//
// Both are opaque external tools behind typed interfaces, so the pipeline can
// run against stub implementations in tests. Their internal algorithms are
// out of scope here; only their input/output contracts are enforced.
package lang
