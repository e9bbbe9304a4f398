package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token.
const AuthorizationHeaderName = "Authorization"

// UploadsURLPrefix is the public path prefix under which stored files are served.
const UploadsURLPrefix = "/uploads/"
