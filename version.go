package goinflux

// GoInfluxVersion is the version of the goinflux client.
const GoInfluxVersion = "0.3.0"
