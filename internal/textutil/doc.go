// Package textutil provides listing-title fingerprints and cosine similarity.
//
// Titles are NFKC-normalized first so full-width Latin letters and digits
// fold onto their ASCII forms and half-width katakana widens. Latin and digit
// runs become word tokens; runs of Han, Hiragana, Katakana, or Hangul become
// overlapping character bigrams, since Japanese titles carry no spaces.
package textutil
