package http

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/sismos-dashboard/internal/analysis"
	"github.com/couchcryptid/sismos-dashboard/internal/domain"
)

// headRows is how many of the latest quakes the page lists.
const headRows = 5

var funcMap = template.FuncMap{
	"fmtTime": func(t time.Time) string {
		if t.IsZero() {
			return "—"
		}
		return t.In(domain.Santiago()).Format(domain.TimeLayout)
	},
	"fmtOpt": func(v *float64) string {
		if v == nil {
			return "—"
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	},
	"fmtCoord": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 4, 64)
	},
	"sourceLabel": func(s string) string {
		switch s {
		case domain.SourceAPI:
			return "API"
		case domain.SourceGeocoded:
			return "geocodificada"
		case domain.SourceSynthetic:
			return "aleatoria"
		default:
			return s
		}
	},
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(funcMap).Parse(dashboardHTML))

type dashboardPage struct {
	SourceURL    string
	Loaded       bool
	FetchedAt    time.Time
	Count        int
	Warnings     []string
	Head         []domain.Quake
	Stats        []analysis.ColumnStats
	MinMagnitude float64
	MaxMagnitude float64
	DefaultMin   float64
	MapboxToken  string
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	page := dashboardPage{
		SourceURL:    s.opts.SourceURL,
		MinMagnitude: analysis.MinThreshold,
		MaxMagnitude: analysis.MaxThreshold,
		DefaultMin:   s.opts.DefaultMinMagnitude,
		MapboxToken:  s.opts.MapboxToken,
	}
	if snap := s.source.Snapshot(); snap != nil {
		page.Loaded = true
		page.FetchedAt = snap.FetchedAt
		page.Count = snap.Table.Len()
		page.Warnings = snap.Report.Warnings()
		page.Head = snap.Table.Head(headRows)
		page.Stats = snap.Table.Describe()
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, page); err != nil {
		s.logger.Error("render dashboard failed", "error", err)
		http.Error(w, "render dashboard failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !page.Loaded {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = buf.WriteTo(w)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Aplicación Sismos</title>
<script src="https://unpkg.com/deck.gl@9.0.16/dist.min.js"></script>
<script src="https://unpkg.com/maplibre-gl@4.1.2/dist/maplibre-gl.js"></script>
<link href="https://unpkg.com/maplibre-gl@4.1.2/dist/maplibre-gl.css" rel="stylesheet">
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.2/dist/chart.umd.min.js"></script>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0 auto; max-width: 1100px; padding: 0 1.5rem 3rem; color: #1f2933; }
  h1 { margin-top: 1.5rem; }
  h2 { margin-top: 2.5rem; border-bottom: 1px solid #e4e7eb; padding-bottom: .3rem; }
  table { border-collapse: collapse; width: 100%; font-size: .9rem; }
  th, td { border-bottom: 1px solid #e4e7eb; padding: .35rem .5rem; text-align: left; }
  td.num, th.num { text-align: right; font-variant-numeric: tabular-nums; }
  .ok { color: #0f7b3f; }
  .error { background: #fde8e8; color: #9b1c1c; padding: .8rem 1rem; border-radius: 4px; }
  .warning { background: #fdf6e3; color: #8a5a00; padding: .6rem 1rem; border-radius: 4px; margin: .4rem 0; }
  #map { position: relative; height: 520px; border-radius: 4px; overflow: hidden; }
  .chart { position: relative; height: 320px; }
  .slider { display: flex; align-items: center; gap: 1rem; }
  .slider input { flex: 1; }
  .muted { color: #7b8794; font-size: .85rem; }
</style>
</head>
<body>
<h1>Aplicación Sismos</h1>

<h2>Descripción de los datos</h2>
<p>Esta aplicación muestra los últimos sismos registrados en Chile, obtenidos de una API pública.
Los datos incluyen la magnitud, la profundidad, la referencia geográfica y la fecha y hora de cada evento.
Fuente: <a href="{{.SourceURL}}">{{.SourceURL}}</a>.</p>

{{if not .Loaded}}
<p class="error">Error al conectar con la API. Los datos se mostrarán cuando la próxima actualización tenga éxito.</p>
<script>
(function () {
  function poll() {
    fetch("/api/summary")
      .then(function (r) { if (r.ok) { location.reload(); } else { setTimeout(poll, 10000); } })
      .catch(function () { setTimeout(poll, 10000); });
  }
  setTimeout(poll, 10000);
})();
</script>
{{else}}
<p class="ok" id="status">Conexión exitosa con la API. {{.Count}} sismos, actualizado {{fmtTime .FetchedAt}}.</p>
<div id="warnings">{{range .Warnings}}<p class="warning">{{.}}</p>{{end}}</div>

<h2>Últimos sismos registrados</h2>
<table>
<thead><tr><th>Fecha</th><th class="num">Magnitud</th><th class="num">Profundidad (km)</th><th>Referencia</th><th class="num">Latitud</th><th class="num">Longitud</th><th>Ubicación</th></tr></thead>
<tbody>
{{range .Head}}<tr><td>{{fmtTime .Time}}</td><td class="num">{{fmtOpt .Magnitude}} {{.Scale}}</td><td class="num">{{fmtOpt .DepthKm}}</td><td>{{.Location.Raw}}</td><td class="num">{{fmtCoord .Geo.Lat}}</td><td class="num">{{fmtCoord .Geo.Lon}}</td><td>{{sourceLabel .CoordSource}}</td></tr>
{{end}}
</tbody>
</table>

<h2>Estadísticas generales</h2>
<table>
<thead><tr><th></th><th class="num">count</th><th class="num">mean</th><th class="num">std</th><th class="num">min</th><th class="num">25%</th><th class="num">50%</th><th class="num">75%</th><th class="num">max</th></tr></thead>
<tbody>
{{range .Stats}}<tr><th>{{.Column}}</th><td class="num">{{.Count}}</td><td class="num">{{.Mean}}</td><td class="num">{{.Std}}</td><td class="num">{{.Min}}</td><td class="num">{{.P25}}</td><td class="num">{{.P50}}</td><td class="num">{{.P75}}</td><td class="num">{{.Max}}</td></tr>
{{end}}
</tbody>
</table>

<h2>Filtro por magnitud</h2>
<div class="slider">
  <label for="min-magnitude">Magnitud mínima</label>
  <input type="range" id="min-magnitude" min="{{.MinMagnitude}}" max="{{.MaxMagnitude}}" step="0.1" value="{{.DefaultMin}}">
  <output id="min-magnitude-value">{{.DefaultMin}}</output>
</div>
<p class="muted" id="filter-count"></p>

<h2>Visualización en 3D de sismos</h2>
<div id="map"></div>

<h2>Distribución de frecuencia por magnitud</h2>
<div class="chart"><canvas id="frequency"></canvas></div>

<h2>Magnitud de sismos a lo largo del tiempo</h2>
<div class="chart"><canvas id="timeline"></canvas></div>

<h2>Ubicaciones de sismos con magnitud</h2>
<div class="chart"><canvas id="scatter"></canvas></div>

<h2>Análisis de las gráficas</h2>
<ul>
  <li><b>Mapa 3D de columnas:</b> cada columna marca la ubicación de un sismo; su altura y su color crecen con la magnitud.</li>
  <li><b>Distribución de frecuencia:</b> la mayoría de los eventos se concentra en magnitudes bajas, con algunos eventos significativos.</li>
  <li><b>Magnitud a lo largo del tiempo:</b> muestra la magnitud promedio por fecha y permite observar tendencias recientes.</li>
  <li><b>Ubicaciones y magnitudes:</b> muestra la dispersión geográfica de la actividad sísmica a lo largo del país.</li>
</ul>

<h2>Conclusiones</h2>
<ul>
  <li>Los sismos ocurren con frecuencia a lo largo de todo el territorio chileno.</li>
  <li>Las magnitudes varían, aunque la mayoría se ubica en niveles bajos y moderados.</li>
  <li>El mapa 3D y el gráfico de dispersión ofrecen una perspectiva clara de la distribución de la actividad sísmica.</li>
</ul>

<script>
(function () {
  var mapboxToken = {{.MapboxToken}};
  var slider = document.getElementById("min-magnitude");
  var sliderValue = document.getElementById("min-magnitude-value");
  var filterCount = document.getElementById("filter-count");

  function baseStyle() {
    if (!mapboxToken) {
      return "https://basemaps.cartocdn.com/gl/positron-gl-style/style.json";
    }
    return {
      version: 8,
      sources: { base: { type: "raster", tileSize: 256,
        tiles: ["https://api.mapbox.com/styles/v1/mapbox/light-v11/tiles/256/{z}/{x}/{y}?access_token=" + encodeURIComponent(mapboxToken)] } },
      layers: [{ id: "base", type: "raster", source: "base" }]
    };
  }

  var deckgl = new deck.DeckGL({
    container: "map",
    map: maplibregl,
    mapStyle: baseStyle(),
    initialViewState: { latitude: -33.46, longitude: -70.65, zoom: 4, pitch: 50, bearing: 0 },
    controller: true,
    getTooltip: function (info) {
      if (!info.object) { return null; }
      var o = info.object;
      return {
        html: "<b>Magnitud:</b> " + (o.magnitude === null ? "—" : o.magnitude) +
              "<br/><b>Lugar:</b> " + o.place + "<br/><b>Fecha:</b> " + o.date,
        style: { backgroundColor: "steelblue", color: "white" }
      };
    },
    layers: []
  });

  function chart(id, type, options) {
    return new Chart(document.getElementById(id), {
      type: type,
      data: { labels: [], datasets: [{ data: [], backgroundColor: "rgba(220, 80, 30, 0.6)", borderColor: "rgb(220, 80, 30)" }] },
      options: Object.assign({ maintainAspectRatio: false, animation: false, plugins: { legend: { display: false } } }, options || {})
    });
  }

  var frequency = chart("frequency", "bar");
  var timeline = chart("timeline", "line");
  var scatter = chart("scatter", "scatter", {
    scales: { x: { title: { display: true, text: "Longitud" } }, y: { title: { display: true, text: "Latitud" } } }
  });

  function render(data) {
    filterCount.textContent = data.count + " sismos con magnitud ≥ " + data.min_magnitude;

    deckgl.setProps({ layers: [new deck.ColumnLayer({
      id: "quakes",
      data: data.columns,
      getPosition: function (d) { return d.position; },
      getFillColor: function (d) { return d.color; },
      getElevation: function (d) { return d.elevation; },
      elevationScale: 10,
      radius: 30000,
      opacity: 0.7,
      pickable: true,
      autoHighlight: true
    })] });

    frequency.data.labels = data.frequency.map(function (b) { return b.magnitude.toFixed(1); });
    frequency.data.datasets[0].data = data.frequency.map(function (b) { return b.count; });
    frequency.update();

    timeline.data.labels = data.timeline.map(function (p) { return p.time; });
    timeline.data.datasets[0].data = data.timeline.map(function (p) { return p.mean_magnitude; });
    timeline.update();

    scatter.data.datasets[0].data = data.scatter.map(function (p) { return { x: p.longitude, y: p.latitude }; });
    scatter.data.datasets[0].pointRadius = data.scatter.map(function (p) { return Math.max(2, p.size / 6); });
    scatter.update();
  }

  function load() {
    var v = parseFloat(slider.value);
    sliderValue.textContent = v.toFixed(1);
    fetch("/api/charts?min_magnitude=" + encodeURIComponent(v.toFixed(1)))
      .then(function (r) { return r.ok ? r.json() : Promise.reject(r.status); })
      .then(render)
      .catch(function (err) { filterCount.textContent = "No se pudieron cargar las gráficas (" + err + ")"; });
  }

  function listen() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "/ws");
    ws.onmessage = function (ev) {
      var u = JSON.parse(ev.data);
      if (u.type !== "refresh") { return; }
      document.getElementById("status").textContent =
        "Conexión exitosa con la API. " + u.count + " sismos, actualizado " + new Date(u.fetched_at).toLocaleString("es-CL") + ".";
      var box = document.getElementById("warnings");
      box.textContent = "";
      u.warnings.forEach(function (w) {
        var p = document.createElement("p");
        p.className = "warning";
        p.textContent = w;
        box.appendChild(p);
      });
      load();
    };
    ws.onclose = function () { setTimeout(listen, 5000); };
  }

  slider.addEventListener("input", load);
  load();
  listen();
})();
</script>
{{end}}
</body>
</html>
`
