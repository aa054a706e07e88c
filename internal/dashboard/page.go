package dashboard

import "github.com/gofiber/fiber/v2"

// handleIndex serves the single-page dashboard. The page is embedded so the
// binary is self-contained; all data comes from the JSON API.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Air Quality Dashboard</title>
<script src="https://cdn.plot.ly/plotly-2.32.0.min.js"></script>
<style>
  body { font-family: sans-serif; margin: 2rem; max-width: 960px; }
  select { margin-right: 1rem; padding: 0.25rem; }
  .metrics { display: flex; gap: 2rem; margin: 1rem 0; }
  .metric { border: 1px solid #ddd; border-radius: 6px; padding: 0.75rem 1.25rem; }
  .metric .value { font-size: 1.6rem; font-weight: bold; }
  .metric .label { color: #666; font-size: 0.8rem; }
  #empty { color: #666; font-style: italic; }
</style>
</head>
<body>
<h1>Air quality in our cities</h1>
<p>Interactive dashboard for exploring historical air-pollution measurements.</p>

<div>
  <label>City <select id="city"></select></label>
  <label>Date <select id="date"></select></label>
</div>

<p id="empty" hidden></p>
<div class="metrics" id="metrics" hidden>
  <div class="metric"><div class="value" id="m-aqi"></div><div class="label" id="m-aqi-label">AQI</div></div>
  <div class="metric"><div class="value" id="m-pm25"></div><div class="label">PM2.5 (μg/m³)</div></div>
  <div class="metric"><div class="value" id="m-pm10"></div><div class="label">PM10 (μg/m³)</div></div>
  <div class="metric"><div class="value" id="m-no2"></div><div class="label">NO₂ (μg/m³)</div></div>
</div>

<div id="aqi-chart"></div>
<div id="pollutant-chart"></div>

<script>
const fmt = v => v == null ? "N/A" : v.toFixed ? v.toFixed(1) : v;

async function loadCities() {
  const resp = await fetch("/api/v1/cities");
  const body = await resp.json();
  if (!body.cities.length) {
    showEmpty(body.message || "No data in the database yet. Run the ETL first.");
    return;
  }
  fillSelect("city", body.cities);
  await loadDates();
}

async function loadDates() {
  const city = document.getElementById("city").value;
  const resp = await fetch("/api/v1/dates?city=" + encodeURIComponent(city));
  const body = await resp.json();
  fillSelect("date", body.dates);
  await render();
}

async function render() {
  const city = document.getElementById("city").value;
  const date = document.getElementById("date").value;
  const resp = await fetch("/api/v1/measurements?city=" + encodeURIComponent(city) + "&date=" + date);
  const body = await resp.json();
  const rows = body.measurements || [];
  if (!rows.length) {
    showEmpty(body.message || "No data available for the selected filters.");
    return;
  }
  document.getElementById("empty").hidden = true;
  document.getElementById("metrics").hidden = false;

  const latest = rows[rows.length - 1];
  document.getElementById("m-aqi").textContent = latest.aqi == null ? "N/A" : latest.aqi;
  document.getElementById("m-aqi").style.color = latest.aqi_color;
  document.getElementById("m-aqi-label").textContent = "AQI: " + latest.aqi_label;
  document.getElementById("m-pm25").textContent = fmt(latest.pm2_5);
  document.getElementById("m-pm10").textContent = fmt(latest.pm10);
  document.getElementById("m-no2").textContent = fmt(latest.no2);

  const times = rows.map(r => r.time);
  Plotly.newPlot("aqi-chart", [{ x: times, y: rows.map(r => r.aqi), mode: "lines+markers" }],
    { title: "AQI over the day", yaxis: { dtick: 1, range: [0.5, 5.5] } });
  Plotly.newPlot("pollutant-chart", [{ x: times, y: rows.map(r => r.pm2_5), type: "bar" }],
    { title: "PM2.5 concentration (μg/m³)" });
}

function fillSelect(id, values) {
  const el = document.getElementById(id);
  el.innerHTML = "";
  for (const v of values) {
    const opt = document.createElement("option");
    opt.value = opt.textContent = v;
    el.appendChild(opt);
  }
}

function showEmpty(msg) {
  const el = document.getElementById("empty");
  el.textContent = msg;
  el.hidden = false;
  document.getElementById("metrics").hidden = true;
}

document.getElementById("city").addEventListener("change", loadDates);
document.getElementById("date").addEventListener("change", render);
loadCities();
</script>
</body>
</html>
`
