// Package http provides JSON request and response helpers for handlers
// resolved from the container.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	var payload struct {
//	    Name string `json:"name"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
//	lang := req.RouteParam("lang")
//	name := req.Query("name", "world")
//	id   := req.ID()        // X-Request-ID or a fresh UUID
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res.Success(v)          // 200 {"data": v}
//	res.Created(v)          // 201 {"data": v}
//	res.NotFound()          // 404 {"message": "Not found."}
//	res.ValidationError(e)  // 422 {"errors": {...}}
//
// # Resolution errors
//
// ResolutionError renders a container error with its kind, and StatusFor
// picks the status: 404 for an unresolved contract, 503 once the injector is
// torn down, 500 for every other configuration or construction failure.
package http
