package app

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

// shellTemplate is the only HTML the browser loads directly. Everything
// inside the mount point arrives over the page session websocket.
var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>CaseDesk</title>
</head>
<body data-mount="{{.MountID}}">
  <div id="{{.MountID}}"></div>
  <script>
(function () {
  const mount = document.getElementById(document.body.dataset.mount);
  const proto = location.protocol === "https:" ? "wss:" : "ws:";
  const ws = new WebSocket(proto + "//" + location.host + "/ws");
  const send = (type, data) => ws.send(JSON.stringify({ type: type, data: data || {} }));

  ws.onopen = () => send("init", { path: location.pathname, token: sessionStorage.getItem("token") || "" });
  ws.onmessage = (event) => {
    const msg = JSON.parse(event.data);
    const data = msg.data || {};
    switch (msg.type) {
      case "history":
        if (data.op === "push") history.pushState(null, "", data.path);
        else history.replaceState(null, "", data.path);
        break;
      case "mount":
        mount.innerHTML = data.html;
        break;
      case "auth":
        if (!data.authenticated) sessionStorage.removeItem("token");
        break;
      case "error":
        console.warn("casedesk:", data.message);
        break;
    }
  };

  window.addEventListener("popstate", () => send("popstate", { path: location.pathname }));

  document.addEventListener("click", (event) => {
    const link = event.target.closest("a[data-nav]");
    if (!link) return;
    event.preventDefault();
    send("navigate", { path: link.getAttribute("href") });
  });

  document.addEventListener("submit", async (event) => {
    if (event.target.id !== "login-form") return;
    event.preventDefault();
    const form = new FormData(event.target);
    const res = await fetch(event.target.dataset.action, {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ username: form.get("username"), password: form.get("password") }),
    });
    const body = await res.json();
    if (!body.success) return;
    sessionStorage.setItem("token", body.data.token);
    send("login", { token: body.data.token });
    send("navigate", { path: "/dashboard" });
  });
})();
  </script>
</body>
</html>
`))

type shellData struct {
	MountID string
}

func renderShell(c echo.Context, mountID string) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return shellTemplate.Execute(c.Response(), shellData{MountID: mountID})
}
