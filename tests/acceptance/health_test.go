package acceptance

import (
	"io"
	"net/http"
)

func (s *Suite) TestHealthEndpoint() {
	resp := s.send(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode, "Expected status 200")
}

func (s *Suite) TestMetricsEndpoint() {
	s.send(http.MethodGet, "/ping", nil, nil)

	resp := s.send(http.MethodGet, "/metrics", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(body), "go_goroutines")
}
