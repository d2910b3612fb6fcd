// Package tokenizer implements a language-agnostic lexical scanner.
//
// Classification uses a single prioritized rule table (see DefaultRules)
// instead of per-language grammars: comments, string/number literals,
// identifiers, keywords, punctuation, whitespace, and a catch-all "other"
// kind that guarantees every rune of the input is covered by exactly one
// token. That is deliberately weaker than a real parser and good enough for
// navigation and search; richer rule tables can be installed per call site
// via NewWithRules without touching callers.
//
//	lex := tokenizer.New("pkg/util/math.go", content)
//	for tok, ok := lex.Next(); ok; tok, ok = lex.Next() {
//	    fmt.Println(tok.Kind, tok.Text)
//	}
package tokenizer
