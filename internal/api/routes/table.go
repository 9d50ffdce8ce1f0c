package routes

import (
	"net/http"
	"sort"
	"strings"

	"fleet-manager/internal/errs"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Methods the API answers. Anything else is a 405 before matching.
var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Route binds a method and a path pattern to a handler. Pattern segments
// starting with ':' capture a parameter.
type Route struct {
	Name    string
	Method  string
	Pattern string
	Public  bool
	Handler gin.HandlerFunc

	segments []string
}

// Table is an ordered route list evaluated in one pass. The first route whose
// method and pattern match wins, so specialised prefixes must be added before
// generic ones.
type Table struct {
	basePath  string
	routes    []Route
	common    []gin.HandlerFunc
	public    []gin.HandlerFunc
	protected []gin.HandlerFunc
}

func NewTable(basePath string) *Table {
	return &Table{basePath: strings.TrimSuffix(basePath, "/")}
}

// Add appends routes in priority order.
func (t *Table) Add(routes ...Route) *Table {
	for _, r := range routes {
		r.segments = splitPath(r.Pattern)
		t.routes = append(t.routes, r)
	}
	return t
}

// Use adds middleware that runs for every matched route.
func (t *Table) Use(middleware ...gin.HandlerFunc) *Table {
	t.common = append(t.common, middleware...)
	return t
}

// Public adds middleware that runs for matched routes marked Public.
func (t *Table) Public(middleware ...gin.HandlerFunc) *Table {
	t.public = append(t.public, middleware...)
	return t
}

// Protect adds middleware that runs for matched routes not marked Public.
func (t *Table) Protect(middleware ...gin.HandlerFunc) *Table {
	t.protected = append(t.protected, middleware...)
	return t
}

func (t *Table) Routes() []Route {
	return t.routes
}

// Match finds the route for method and path. When no route matches it
// returns nil and ErrNotFound, or ErrMethodNotAllowed with the methods the
// path does accept.
func (t *Table) Match(method, path string) (*Route, gin.Params, []string, error) {
	path, ok := t.trimBase(path)
	if !ok {
		return nil, nil, nil, errs.NotFound(utils.MsgNotFound)
	}
	segments := splitPath(path)

	allowed := map[string]bool{}
	for i := range t.routes {
		route := &t.routes[i]
		params, ok := matchSegments(route.segments, segments)
		if !ok {
			continue
		}
		if route.Method == method {
			return route, params, nil, nil
		}
		allowed[route.Method] = true
	}

	if len(allowed) == 0 {
		return nil, nil, nil, errs.NotFound(utils.MsgNotFound)
	}
	return nil, nil, sortedKeys(allowed), errs.MethodNotAllowed(utils.MsgNotAllowed)
}

// Dispatch is the single gin handler behind the table.
func (t *Table) Dispatch(c *gin.Context) {
	method := c.Request.Method
	if !supportedMethods[method] {
		utils.HandleError(c, errs.MethodNotAllowed(utils.MsgNotAllowed))
		return
	}

	if method == http.MethodOptions {
		_, _, allowed, err := t.Match(http.MethodOptions, c.Request.URL.Path)
		if errs.Status(err) == http.StatusNotFound || len(allowed) == 0 {
			allowed = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
		}
		c.Header("Allow", strings.Join(append(allowed, http.MethodOptions), ", "))
		c.Status(http.StatusOK)
		return
	}

	route, params, allowed, err := t.Match(method, c.Request.URL.Path)
	if err != nil {
		if len(allowed) > 0 {
			c.Header("Allow", strings.Join(allowed, ", "))
		}
		utils.HandleError(c, err)
		return
	}

	c.Params = normalizeParams(params, c)
	c.Set("route", route.Name)

	chain := make([]gin.HandlerFunc, 0, len(t.common)+len(t.public)+len(t.protected)+1)
	chain = append(chain, t.common...)
	if route.Public {
		chain = append(chain, t.public...)
	} else {
		chain = append(chain, t.protected...)
	}
	chain = append(chain, route.Handler)

	for _, h := range chain {
		h(c)
		if c.IsAborted() {
			return
		}
	}
}

func (t *Table) trimBase(path string) (string, bool) {
	if t.basePath == "" {
		return path, true
	}
	if path == t.basePath {
		return "/", true
	}
	rest, ok := strings.CutPrefix(path, t.basePath+"/")
	if !ok {
		return "", false
	}
	return "/" + rest, true
}

// normalizeParams applies the ?id= alias and Title-cases the month.
func normalizeParams(params gin.Params, c *gin.Context) gin.Params {
	if _, ok := params.Get("id"); !ok {
		if id := c.Query("id"); id != "" {
			params = append(params, gin.Param{Key: "id", Value: id})
		}
	}
	for i := range params {
		if params[i].Key == "month" {
			params[i].Value = utils.TitleCase(params[i].Value)
		}
	}
	return params
}

// splitPath drops empty segments, so "/trucks/" and "/trucks" are the same
// path.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

func matchSegments(pattern, path []string) (gin.Params, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	var params gin.Params
	for i, seg := range pattern {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			params = append(params, gin.Param{Key: name, Value: path[i]})
			continue
		}
		if seg != path[i] {
			return nil, false
		}
	}
	return params, true
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
