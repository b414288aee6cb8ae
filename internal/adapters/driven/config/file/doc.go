// Package file keeps user-editable state under ~/.deep-researcher: the
// TOML settings file and the prompt templates.
package file
