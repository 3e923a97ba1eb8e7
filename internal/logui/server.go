package logui

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pokerjest/tvtidy/internal/config"
)

const page = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>tvtidy</title>
<style>
body { background:#111; color:#ddd; font:13px/1.5 monospace; margin:1em; }
.warning { color:#fb5; } .error { color:#f66; } .debug { color:#777; }
#bar { position:fixed; top:0; right:0; padding:.5em 1em; }
button { background:#922; color:#fff; border:0; padding:.4em 1em; cursor:pointer; }
</style></head>
<body>
<div id="bar"><button onclick="fetch('api/stop'+location.search,{method:'POST'})">停止</button></div>
<pre id="log"></pre>
<script>
let seq = 0;
async function poll() {
  const res = await fetch('api/logs'+location.search+(location.search?'&':'?')+'after='+seq);
  if (res.ok) {
    const lines = await res.json();
    for (const l of lines) {
      seq = l.seq;
      const div = document.createElement('div');
      div.className = l.level;
      div.textContent = l.time+' ['+l.level+'] '+l.message;
      document.getElementById('log').appendChild(div);
    }
    if (lines.length) window.scrollTo(0, document.body.scrollHeight);
  }
  setTimeout(poll, 1000);
}
poll();
</script>
</body>
</html>`

// NewServer 挂好路由的 gin engine。调用方自己决定 Run 的地址。
func NewServer(hub *Hub, cfg config.ServerConfig) *gin.Engine {
	if cfg.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	if cfg.Token != "" {
		r.Use(tokenMiddleware(cfg.Token))
	}

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/logs", func(c *gin.Context) {
			after, _ := strconv.ParseInt(c.Query("after"), 10, 64)
			lines := hub.Since(after)
			if lines == nil {
				lines = []Line{}
			}
			c.JSON(http.StatusOK, lines)
		})
		apiGroup.POST("/stop", func(c *gin.Context) {
			hub.RequestStop()
			c.JSON(http.StatusOK, gin.H{"status": "stopping"})
		})
		apiGroup.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"stop_requested": hub.StopRequested()})
		})
	}
	return r
}

// tokenMiddleware 简单令牌门禁，query 或 header 任一携带即可
func tokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("token") == token || c.GetHeader("X-Token") == token {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
