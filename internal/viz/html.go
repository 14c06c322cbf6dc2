package viz

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate *template.Template

func init() {
	compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))
}

// ErrNoScriptSource is returned for offline rendering without inline Cytoscape.js.
var ErrNoScriptSource = errors.New("offline rendering requires Cytoscape.js source")

// CDNScriptURL is the Cytoscape.js bundle referenced when not offline.
const CDNScriptURL = "https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout  string // "force", "circle", "grid", or "breadthfirst"
	Offline bool   // Whether to embed Cytoscape.js inline
	Title   string

	// ScriptSource is the Cytoscape.js source inlined when Offline is set.
	ScriptSource string

	// Interactive makes taps post selection toggles to the session server
	// and reload the page.
	Interactive bool
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{
		Layout: "force",
		Title:  "Knowledge Graph",
	}
}

// ValidLayouts lists the supported layout algorithm names.
var ValidLayouts = []string{"force", "circle", "grid", "breadthfirst"}

// GenerateHTML generates a self-contained HTML file for the scene.
func GenerateHTML(scene *Scene, opts HTMLOptions) (string, error) {
	if scene == nil {
		return "", fmt.Errorf("scene cannot be nil")
	}

	if err := ValidateLayout(opts.Layout); err != nil {
		return "", err
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	if scene.IsEmpty() {
		return generateEmptyHTML(opts.Title), nil
	}

	graphJSON, err := scene.ToCytoscapeJSON()
	if err != nil {
		return "", err
	}

	scriptTag, err := buildScriptTag(opts)
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:       opts.Title,
		ScriptTag:   template.HTML(scriptTag),
		GraphJSON:   template.JS(graphJSON),
		Layout:      layoutToCytoscape(opts.Layout),
		Interactive: opts.Interactive,
		NodeLegend:  NodeLegend(),
		EdgeLegend:  EdgeLegend(),
		NodeCount:   len(scene.Nodes),
		EdgeCount:   len(scene.Edges),
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ValidateLayout checks if the layout option is valid.
func ValidateLayout(layout string) error {
	switch layout {
	case "", "force", "circle", "grid", "breadthfirst":
		return nil
	default:
		return fmt.Errorf("invalid layout %q: must be one of %s", layout, strings.Join(ValidLayouts, ", "))
	}
}

// templateData holds data for the HTML template.
type templateData struct {
	Title       string
	ScriptTag   template.HTML
	GraphJSON   template.JS
	Layout      string
	Interactive bool
	NodeLegend  []LegendEntry
	EdgeLegend  []LegendEntry
	NodeCount   int
	EdgeCount   int
}

// layoutToCytoscape converts user-friendly layout names to Cytoscape.js layout algorithm names.
func layoutToCytoscape(layout string) string {
	switch layout {
	case "circle":
		return "circle"
	case "grid":
		return "grid"
	case "breadthfirst":
		return "breadthfirst"
	default:
		return "cose"
	}
}

// buildScriptTag returns either inline script or CDN reference.
func buildScriptTag(opts HTMLOptions) (string, error) {
	if opts.Offline {
		if strings.TrimSpace(opts.ScriptSource) == "" {
			return "", ErrNoScriptSource
		}
		// Keep a literal closing tag in the bundle from ending the element early.
		src := strings.ReplaceAll(opts.ScriptSource, "</script", `<\/script`)
		return "<script>" + src + "</script>", nil
	}
	return `<script src="` + CDNScriptURL + `"></script>`, nil
}

// generateEmptyHTML returns HTML for an empty graph state.
func generateEmptyHTML(title string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>` + template.HTMLEscapeString(title) + ` - Empty</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
    .empty-state p {
      margin: 0.5em 0;
    }
    .empty-state code {
      background: #e0e0e0;
      padding: 2px 6px;
      border-radius: 3px;
    }
  </style>
</head>
<body>
  <div class="empty-state">
    <h2>Nothing to show</h2>
    <p>No nodes pass the current level filter and nothing is selected.</p>
    <p>Add nodes using <code>atlas node add</code></p>
    <p>Widen the filter with <code>atlas viz --all-levels</code></p>
  </div>
</body>
</html>`
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  {{.ScriptTag}}
  <style>
    * {
      box-sizing: border-box;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      margin: 0;
      padding: 0;
      background: #f5f5f5;
    }
    #cy {
      width: 100%;
      height: 100vh;
      background: white;
    }
    #tooltip {
      position: absolute;
      display: none;
      background: white;
      border: 1px solid #ccc;
      border-radius: 4px;
      padding: 8px 12px;
      box-shadow: 0 2px 8px rgba(0,0,0,0.15);
      max-width: 300px;
      font-size: 13px;
      z-index: 1000;
    }
    #legend {
      position: absolute;
      top: 12px;
      left: 12px;
      background: rgba(255,255,255,0.9);
      border: 1px solid #ddd;
      border-radius: 4px;
      padding: 8px 12px;
      font-size: 12px;
      z-index: 900;
    }
    #legend h4 {
      margin: 4px 0;
      font-size: 11px;
      text-transform: uppercase;
      color: #888;
    }
    #legend .swatch {
      display: inline-block;
      width: 10px;
      height: 10px;
      margin-right: 6px;
      border: 1px solid #999;
    }
    #legend .counts {
      margin-top: 6px;
      color: #666;
    }
  </style>
</head>
<body>
  <div id="cy"></div>
  <div id="tooltip"></div>
  <div id="legend">
    <h4>Node types</h4>
    {{range .NodeLegend}}<div><span class="swatch" style="background: {{.Color}}"></span>{{.Label}} ({{.Shape}})</div>
    {{end}}
    <h4>Relationships</h4>
    {{range .EdgeLegend}}<div><span class="swatch" style="background: {{.Color}}"></span>{{.Label}}</div>
    {{end}}
    <div class="counts">{{.NodeCount}} nodes, {{.EdgeCount}} edges</div>
  </div>
  <script>
    (function() {
      const graphData = {{.GraphJSON}};
      const layout = "{{.Layout}}";
      const interactive = {{.Interactive}};

      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: graphData,
        style: [
          {
            selector: 'node',
            style: {
              'background-color': 'data(color)',
              'shape': 'data(shape)',
              'label': 'data(label)',
              'color': '#333',
              'font-size': '10px',
              'text-valign': 'bottom',
              'text-margin-y': '5px',
              'width': 'data(size)',
              'height': 'data(size)'
            }
          },
          {
            selector: 'node.selected',
            style: {
              'border-width': 2,
              'border-color': '#b8860b',
              'font-weight': 'bold'
            }
          },
          {
            selector: 'edge',
            style: {
              'line-color': 'data(color)',
              'target-arrow-color': 'data(color)',
              'target-arrow-shape': 'data(arrow)',
              'curve-style': 'bezier',
              'width': 'data(width)',
              'label': 'data(label)',
              'font-size': '8px',
              'color': '#777',
              'text-rotation': 'autorotate'
            }
          },
          {
            selector: 'node.dimmed',
            style: {
              'opacity': 0.3
            }
          },
          {
            selector: 'edge.dimmed',
            style: {
              'opacity': 0.2
            }
          }
        ],
        layout: {
          name: layout,
          animate: false,
          // cose-specific options
          nodeRepulsion: 8000,
          idealEdgeLength: 100,
          edgeElasticity: 100,
          // breadthfirst-specific options
          directed: true,
          spacingFactor: 1.25
        }
      });

      const tooltip = document.getElementById('tooltip');

      function showTooltip(evt, content) {
        tooltip.innerHTML = content;
        tooltip.style.display = 'block';
        const pos = evt.renderedPosition || evt.position;
        tooltip.style.left = (pos.x + 15) + 'px';
        tooltip.style.top = (pos.y + 15) + 'px';
      }

      function hideTooltip() {
        tooltip.style.display = 'none';
      }

      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;')
                  .replace(/</g, '&lt;')
                  .replace(/>/g, '&gt;')
                  .replace(/"/g, '&quot;');
      }

      // Node titles are escaped server-side.
      cy.on('mouseover', 'node', function(evt) {
        showTooltip(evt, evt.target.data('title'));
      });

      cy.on('mouseover', 'edge', function(evt) {
        const data = evt.target.data();
        showTooltip(evt, escapeHtml(data.source) + ' &rarr; ' + escapeHtml(data.target) +
          '<br>' + escapeHtml(data.relationship));
      });

      cy.on('mouseout', 'node, edge', hideTooltip);

      function post(url) {
        return fetch(url, { method: 'POST' }).then(function() {
          window.location.reload();
        });
      }

      cy.on('tap', 'node', function(evt) {
        const node = evt.target;
        if (interactive) {
          post('/api/toggle/node/' + encodeURIComponent(node.id()));
          return;
        }
        cy.elements().removeClass('dimmed');
        const neighborhood = node.neighborhood().add(node);
        cy.elements().not(neighborhood).addClass('dimmed');
      });

      cy.on('tap', 'edge', function(evt) {
        if (!interactive) return;
        const data = evt.target.data();
        post('/api/toggle/edge?source=' + encodeURIComponent(data.source) +
          '&target=' + encodeURIComponent(data.target));
      });

      cy.on('tap', function(evt) {
        if (evt.target === cy) {
          cy.elements().removeClass('dimmed');
        }
      });
    })();
  </script>
</body>
</html>`
