package timeline

// shellCSS styles the widget inside the host's item view.
const shellCSS = `
body{font-family:Figtree,Roboto,"Helvetica Neue",Arial,sans-serif;font-size:14px;color:#323338;margin:0;padding:16px;background:#fff}
.loading,.empty{color:#676879}
.parent{margin-bottom:16px}
.cards{display:flex;flex-direction:column;gap:12px}
.card{border:1px solid #d0d4e4;border-radius:8px;padding:12px 16px}
.card h3{margin:0 0 8px;font-size:15px;font-weight:600}
.card form{display:flex;flex-wrap:wrap;align-items:center;gap:12px}
.card label{display:flex;align-items:center;gap:6px}
.current{margin:0 0 8px;color:#676879;font-size:13px}
.field-error{flex-basis:100%;margin:0;color:#d83a52;font-size:13px}
.save{background:#0073ea;color:#fff;border:0;border-radius:4px;padding:6px 16px;cursor:pointer}
.save[disabled]{background:#c3c6d4;cursor:not-allowed}
.banner{border-radius:8px;padding:12px 16px}
.banner-blocked{background:#fff6e5;border:1px solid #fdab3d}
.banner-error{background:#ffebef;border:1px solid #d83a52}
.htmx-request .save{opacity:.6}
.debug{margin-top:16px;color:#676879;font-size:12px}
`

// shellJS wires the page to the host SDK and htmx. The view token is read
// from the view-session meta tag and sent on every htmx request.
const shellJS = `
(function () {
  var script = document.currentScript;
  var token = document.querySelector('meta[name="view-session"]').content;
  var tz = "";
  try { tz = Intl.DateTimeFormat().resolvedOptions().timeZone || ""; } catch (e) {}
  var monday = window.mondaySdk ? window.mondaySdk() : null;

  document.body.addEventListener("htmx:configRequest", function (evt) {
    evt.detail.headers["X-View-Session"] = token;
    if (tz && !evt.detail.parameters.tz) { evt.detail.parameters.tz = tz; }
  });

  document.body.addEventListener("notice", function (evt) {
    if (monday) {
      monday.execute("notice", { message: evt.detail.message, type: evt.detail.type, timeout: 5000 });
    } else {
      console.log("[" + evt.detail.type + "] " + evt.detail.message);
    }
  });

  document.body.addEventListener("blocked", function (evt) {
    alert(evt.detail.message);
  });

  function loadContext(itemId) {
    if (!itemId) { return; }
    htmx.ajax("POST", "/widget/context", {
      target: "#timeline-panel",
      swap: "outerHTML",
      values: { itemId: String(itemId) }
    });
  }

  if (monday) {
    monday.listen("context", function (res) {
      loadContext(res && res.data && res.data.itemId);
    });
  }
  loadContext(script.dataset.itemId);
})();
`
