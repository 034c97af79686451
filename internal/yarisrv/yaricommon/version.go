package yaricommon

// ServerVersion is the running build's version string.
const ServerVersion = "0.1.0-dev"

// ApiVersion is the wire API revision served by this build.
const ApiVersion = "v1"
