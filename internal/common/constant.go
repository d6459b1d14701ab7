package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on requests from the mobile app.
const AccessTokenHeaderName = "Authorization"
