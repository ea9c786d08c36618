// Package fileutil holds small filesystem helpers shared by the alert store
// and the debug observer.
package fileutil
