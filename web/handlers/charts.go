package handlers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"kydx-console/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChartsProxy forwards media locators such as /charts/x.png to the backend,
// which serves the files it produced.
func ChartsProxy(backendURL string, logger *zap.Logger) (gin.HandlerFunc, error) {
	target, err := url.Parse(backendURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", backendURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("Chart proxy failed", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}

	return func(c *gin.Context) {
		if !utils.SafeMediaPath(c.Request.URL.Path, utils.ChartsPrefix) {
			respondWithClientError(c, http.StatusNotFound, "Not found.")
			return
		}
		proxy.ServeHTTP(c.Writer, c.Request)
	}, nil
}
