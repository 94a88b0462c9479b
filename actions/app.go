package actions

import (
	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/envy"
	paramlogger "github.com/gobuffalo/mw-paramlogger"

	"github.com/gobuffalo/buffalo-pop/v3/pop/popmw"
	contenttype "github.com/gobuffalo/mw-contenttype"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/job"
	"github.com/equitrack/partnership-api/listeners"
	"github.com/equitrack/partnership-api/models"
)

// ENV is used to help switch settings based on where the
// application is being run. Default is "development".
var (
	ENV = envy.Get("GO_ENV", "development")
	app *buffalo.App
)

// App declares all routes and middleware.
//
// Routing, middleware, groups, etc... are declared TOP -> DOWN.
// This means if you add a middleware to `app` *after* declaring a
// group, that group will NOT have that new middleware.
func App() *buffalo.App {
	if app == nil {
		app = buffalo.New(buffalo.Options{
			Env: domain.Env.GoEnv,
			PreWares: []buffalo.PreWare{
				cors.New(cors.Options{
					AllowCredentials: true,
					AllowedOrigins:   []string{domain.Env.UIURL},
					AllowedMethods:   []string{"HEAD", "GET", "POST", "PUT", "PATCH", "DELETE"},
					AllowedHeaders:   []string{"*"},
				}).Handler,
			},
			SessionName:  "_partnership_api_session",
			SessionStore: sessions.NewCookieStore([]byte(domain.Env.SessionSecret)),
		})

		registerCustomErrorHandler(app)

		// Log request parameters (filters apply).
		app.Use(paramlogger.ParameterLogger)

		// Set the request content type to JSON
		app.Use(contenttype.Set("application/json"))

		// Wraps each request in a transaction.
		app.Use(popmw.Transaction(models.DB))

		app.Use(AuthN)
		app.Use(AuthZ)

		app.GET("/", HomeHandler)
		app.Middleware.Skip(AuthN, HomeHandler)
		app.Middleware.Skip(AuthZ, HomeHandler)

		usersGroup := app.Group("/" + domain.TypeUser)
		usersGroup.GET("/me", usersMe)
		app.Middleware.Skip(AuthZ, usersMe)

		agreementsGroup := app.Group("/" + domain.TypeAgreement)
		agreementsGroup.GET("/", agreementsList)
		agreementsGroup.POST("/", agreementsCreate)
		agreementsGroup.GET("/{id}", agreementsView)
		agreementsGroup.PUT("/{id}", agreementsUpdate)
		agreementsGroup.POST("/{id}/"+api.ResourceTransition, agreementsTransition)
		agreementsGroup.GET("/{id}/"+api.ResourceSnapshots, agreementsSnapshots)

		interventionsGroup := app.Group("/" + domain.TypeIntervention)
		interventionsGroup.GET("/", interventionsList)
		interventionsGroup.POST("/", interventionsCreate)
		interventionsGroup.GET("/{id}", interventionsView)
		interventionsGroup.PUT("/{id}", interventionsUpdate)
		interventionsGroup.POST("/{id}/"+api.ResourceTransition, interventionsTransition)
		interventionsGroup.GET("/{id}/"+api.ResourceSnapshots, interventionsSnapshots)
		interventionsGroup.POST("/{id}/funds-reservations", interventionsClaimFundsReservation)
		interventionsGroup.POST("/{id}/"+api.ResourceAmend, interventionsAmend)
		interventionsGroup.GET("/{id}/amendments", interventionsAmendments)
		interventionsGroup.POST("/{id}/result-links", resultLinksCreate)

		resultLinksGroup := app.Group("/result-links")
		resultLinksGroup.POST("/{id}/lower-results", lowerResultsCreate)

		lowerResultsGroup := app.Group("/lower-results")
		lowerResultsGroup.DELETE("/{id}", lowerResultsDestroy)
		lowerResultsGroup.POST("/{id}/activities", activitiesCreate)

		activitiesGroup := app.Group("/activities")
		activitiesGroup.DELETE("/{id}", activitiesDestroy)
		activitiesGroup.POST("/{id}/move", activitiesMove)
		activitiesGroup.PUT("/{id}/items", activityItemsSet)

		amendmentsGroup := app.Group("/" + domain.TypeAmendment)
		amendmentsGroup.GET("/{id}", amendmentsView)
		amendmentsGroup.POST("/{id}/"+api.ResourceMerge, amendmentsMerge)

		engagementsGroup := app.Group("/" + domain.TypeEngagement)
		engagementsGroup.GET("/", engagementsList)
		engagementsGroup.POST("/", engagementsCreate)
		engagementsGroup.GET("/{id}", engagementsView)
		engagementsGroup.PUT("/{id}", engagementsUpdate)
		engagementsGroup.PUT("/{id}/findings", engagementsSetFindings)
		engagementsGroup.POST("/{id}/"+api.ResourceTransition, engagementsTransition)
		engagementsGroup.GET("/{id}/"+api.ResourceSnapshots, engagementsSnapshots)

		partnersGroup := app.Group("/" + domain.TypePartner)
		partnersGroup.GET("/", partnersList)
		partnersGroup.GET("/{id}", partnersView)

		ingestGroup := app.Group("/ingest")
		ingestGroup.POST("/organizations", ingestOrganizations)
		ingestGroup.POST("/purchase-orders", ingestPurchaseOrders)
		ingestGroup.POST("/funds-reservations", ingestFundsReservations)

		app.POST("/upload", uploadHandler)

		listeners.RegisterListeners()
		job.Init(&app.Worker)
	}

	return app
}
