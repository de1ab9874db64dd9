package main

import "carebridge/internal/app"

// @title           CareBridge CRM API
// @version         1.0
// @description     Healthcare case management: leads, KYP, pre-authorization, admission and settlement tracking.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
