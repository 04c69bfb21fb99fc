package portal

const portalHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Wi-Fi setup</title>
<style>
body { font-family: sans-serif; max-width: 28em; margin: 2em auto; padding: 0 1em; }
li { cursor: pointer; padding: .3em 0; }
input, button { width: 100%; padding: .5em; margin: .3em 0; box-sizing: border-box; }
#msg { min-height: 1.5em; }
</style>
</head>
<body>
<h1>Wi-Fi setup</h1>
<ul id="networks"><li>Scanning&hellip;</li></ul>
<form id="wifi">
<input name="ssid" id="ssid" placeholder="Network name" maxlength="32" required>
<input name="password" type="password" placeholder="Password" maxlength="64">
<button type="submit">Connect</button>
</form>
<p id="msg"></p>
<script>
function load() {
  fetch('/scan-networks').then(r => r.json()).then(d => {
    const ul = document.getElementById('networks');
    ul.innerHTML = '';
    (d.networks || []).forEach(n => {
      const li = document.createElement('li');
      li.textContent = n.ssid + ' (' + n.quality + '%' + (n.encrypted ? ', secured' : '') + ')';
      li.onclick = () => { document.getElementById('ssid').value = n.ssid; };
      ul.appendChild(li);
    });
  }).catch(() => {});
}
document.getElementById('wifi').onsubmit = e => {
  e.preventDefault();
  fetch('/save-wifi', { method: 'POST', body: new URLSearchParams(new FormData(e.target)) })
    .then(r => r.json())
    .then(d => {
      document.getElementById('msg').textContent = d.success
        ? 'Saved. The device is joining the network.'
        : (d.error || 'Could not save.');
    });
};
load();
</script>
</body>
</html>
`
