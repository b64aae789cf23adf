package bkoa

import "net/http"

// IsEmptyStatus reports whether responses with code never carry a body.
func IsEmptyStatus(code int) bool {
	switch code {
	case http.StatusNoContent, http.StatusResetContent, http.StatusNotModified:
		return true
	default:
		return false
	}
}

// IsRedirectStatus reports whether code is a redirect.
func IsRedirectStatus(code int) bool {
	switch code {
	case http.StatusMultipleChoices, http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusUseProxy, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
