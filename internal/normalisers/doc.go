// Package normalisers turns raw corpus files into documents. Each
// normaliser handles specific MIME types; the Registry picks the
// highest-priority one for a file.
package normalisers
