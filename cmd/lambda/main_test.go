package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(method, path, sourceIP string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		Version:  "2.0",
		RawPath:  path,
		Headers:  map[string]string{},
		RouteKey: "$default",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			DomainName: "abc123.execute-api.eu-west-1.amazonaws.com",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: sourceIP,
			},
		},
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(nil))
	router.POST("/api/trucks", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Header("X-Client", c.ClientIP())
		c.JSON(http.StatusCreated, gin.H{
			"body":  string(body),
			"query": c.Query("id"),
			"type":  c.GetHeader("Content-Type"),
		})
	})

	handler := newHandler(router)

	event := testEvent(http.MethodPost, "/api/trucks", "203.0.113.7")
	event.RawQueryString = "id=abc"
	event.Headers = map[string]string{
		"content-type":      "application/json",
		"x-forwarded-for":   "198.51.100.1",
		"x-apigw-source-ip": "198.51.100.2",
	}
	event.Body = base64.StdEncoding.EncodeToString([]byte(`{"plateNumber":"KBX 123A"}`))
	event.IsBase64Encoded = true

	res, err := handler(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.False(t, res.IsBase64Encoded)
	assert.Contains(t, res.Body, `"query":"abc"`)
	assert.Contains(t, res.Body, `"type":"application/json"`)
	assert.Contains(t, res.Body, `plateNumber`)
	assert.Contains(t, res.Headers["Content-Type"], "application/json")
	assert.Equal(t, "203.0.113.7", res.Headers["X-Client"])
}

func TestHandler_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newHandler(gin.New())

	res, err := handler(context.Background(), testEvent(http.MethodGet, "/api/boats", "203.0.113.7"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHandler_BadBody(t *testing.T) {
	handler := newHandler(gin.New())

	event := testEvent(http.MethodPost, "/", "203.0.113.7")
	event.Body = "%%%"
	event.IsBase64Encoded = true

	_, err := handler(context.Background(), event)
	assert.Error(t, err)
}
