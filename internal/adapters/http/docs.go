package http

import (
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/questgeo/api"
)

// apiDocument parses the embedded OpenAPI document on first use.
var apiDocument = sync.OnceValues(func() (*openapi3.T, error) {
	return openapi3.NewLoader().LoadFromData(api.OpenAPI)
})

// Swagger UI reads the JSON rendering; the YAML stays available for tooling.
const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>QuestGeo API reference</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="reference"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
window.ui = SwaggerUIBundle({url: '/docs/openapi.json', dom_id: '#reference', tryItOutEnabled: true});
</script>
</body>
</html>`

// SetupDocs mounts the API reference under /docs.
func SetupDocs(app *fiber.App) {
	docs := app.Group("/docs")

	docs.Get("", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(docsPage)
	})

	docs.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(api.OpenAPI)
	})

	docs.Get("/openapi.json", func(c *fiber.Ctx) error {
		doc, err := apiDocument()
		if err != nil {
			return errInternal(c, err)
		}
		return c.JSON(doc)
	})
}
