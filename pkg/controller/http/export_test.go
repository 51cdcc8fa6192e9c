package http

var ParseActionFilter = parseActionFilter
