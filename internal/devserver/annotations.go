// @title           redirectly dev server API
// @version         1.0
// @description     Local Redirectly-compatible link API. Authenticate with an API key from "redirectly devserver keys create".
// @BasePath        /api
// @securityDefinitions.apikey BearerToken
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and your API key. Example: "Bearer rdk_xxx"
package devserver
