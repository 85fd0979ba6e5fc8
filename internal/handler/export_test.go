package handler

// MapErrorToHTTPStatus exposes mapErrorToHTTPStatus to external tests.
var MapErrorToHTTPStatus = mapErrorToHTTPStatus
