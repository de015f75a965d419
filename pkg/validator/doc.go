// Package validator provides composable field validation rules that
// collect per-field errors instead of failing on the first problem.
package validator
