package interaction

// enhancerUIHTML is the loopback browser UI served at GET /enhance. It
// polls GET /api/session for the current text, lets the operator edit
// and resubmit it via POST /api/submit, and can ask for a fresh
// enhancement via POST /api/re-enhance before sending.
const enhancerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Prompt Review</title>
<style>
  * { box-sizing: border-box; }
  body { font-family: -apple-system, "Segoe UI", sans-serif; background: #f5f5f5; margin: 0; padding: 24px; }
  .card { max-width: 900px; margin: 0 auto; background: #fff; border: 1px solid #e0e0e0; border-radius: 8px; overflow: hidden; }
  .head { padding: 20px 24px; border-bottom: 1px solid #e0e0e0; }
  .head h1 { font-size: 18px; margin: 0 0 4px; }
  .countdown { font-size: 13px; color: #555; }
  .countdown.warn { color: #a94442; font-weight: 600; }
  .body { padding: 24px; }
  textarea { width: 100%; min-height: 320px; padding: 12px; border: 1px solid #ccc; border-radius: 6px; font-family: ui-monospace, Menlo, monospace; font-size: 13px; }
  .row { margin-top: 16px; display: flex; gap: 10px; flex-wrap: wrap; }
  button { padding: 10px 16px; border: 1px solid #ccc; border-radius: 6px; background: #fafafa; cursor: pointer; font-size: 13px; }
  button.primary { background: #1a73e8; border-color: #1a73e8; color: #fff; }
  button.danger { background: #fff; border-color: #c0392b; color: #c0392b; }
  #status { margin-top: 10px; font-size: 12px; color: #777; }
</style>
</head>
<body>
<div class="card">
  <div class="head">
    <h1>Review the enhanced prompt before sending</h1>
    <div id="countdown" class="countdown"></div>
  </div>
  <div class="body">
    <textarea id="prompt"></textarea>
    <div class="row">
      <button class="primary" id="send">Send</button>
      <button id="reenhance">Re-enhance</button>
      <button id="useOriginal">Use Original</button>
      <button class="danger" id="end">End Conversation</button>
    </div>
    <div id="status"></div>
  </div>
</div>
<script>
const params = new URLSearchParams(window.location.search);
const sessionId = params.get("id");
let deadline = null;

async function loadSession() {
  const res = await fetch("/api/session?id=" + encodeURIComponent(sessionId));
  if (!res.ok) { setStatus("session unavailable"); return; }
  const data = await res.json();
  document.getElementById("prompt").value = data.enhanced_prompt;
  if (deadline === null) deadline = Date.now() + data.timeout_ms;
}

function setStatus(msg) { document.getElementById("status").textContent = msg; }

function tickCountdown() {
  if (deadline === null) return;
  const remainingMs = deadline - Date.now();
  const el = document.getElementById("countdown");
  if (remainingMs <= 0) { el.textContent = "expired"; el.classList.add("warn"); return; }
  const secs = Math.ceil(remainingMs / 1000);
  el.textContent = Math.floor(secs / 60) + "m " + (secs % 60) + "s remaining";
  el.classList.toggle("warn", secs < 30);
}

async function submit(action) {
  setStatus("submitting...");
  const res = await fetch("/api/submit", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({
      id: sessionId,
      content: document.getElementById("prompt").value,
      action: action,
    }),
  });
  setStatus(res.ok ? "sent, you may close this tab" : "submit failed");
}

document.getElementById("send").addEventListener("click", () => submit(""));
document.getElementById("useOriginal").addEventListener("click", () => submit("use_original"));
document.getElementById("end").addEventListener("click", () => submit("end_conversation"));
document.getElementById("reenhance").addEventListener("click", async () => {
  setStatus("re-enhancing...");
  const res = await fetch("/api/re-enhance", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ id: sessionId, current_prompt: document.getElementById("prompt").value }),
  });
  if (res.ok) {
    const data = await res.json();
    document.getElementById("prompt").value = data.enhanced_prompt;
    setStatus("re-enhanced");
  } else {
    setStatus("re-enhance failed");
  }
});

loadSession();
setInterval(tickCountdown, 1000);
</script>
</body>
</html>
`
