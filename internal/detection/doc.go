// Package detection estimates whether text was machine generated.
// Hosted classifiers are tried in configured order and a local heuristic
// scorer terminates the chain, so every sentence receives a probability.
package detection
