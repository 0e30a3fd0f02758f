package handlers

import "github.com/labstack/echo/v4"

// paginationParams reads limit/offset query parameters with the defaults and
// cap every list endpoint shares.
func paginationParams(c echo.Context) (int, int) {
	type pageQuery struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}
	var q pageQuery
	_ = c.Bind(&q)

	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q.Limit, q.Offset
}
