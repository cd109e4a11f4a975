package handlers

import "html/template"

// listingRow is one unified row prepared for display.
type listingRow struct {
	UserDisplay    string
	CapturedAt     string
	HasEmotion     bool
	EmotionLabel   string
	EmotionColor   string
	EmotionScore   string
	HasGPS         bool
	Coordinates    string
	HasVideo       bool
	VideoReference string
}

// listingPage is the template payload for the data-download page.
type listingPage struct {
	Rows       []listingRow
	Page       int
	PageSize   int
	TotalRows  int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
	Error      string
	Year       int
}

var listingTemplate = template.Must(template.New("listing").Parse(listingHTML))

const listingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>EmoGo Data Download</title>
  <script src="https://cdn.tailwindcss.com"></script>
  <style>
    body { font-family: 'Inter', sans-serif; background-color: #f3f4f6; }
  </style>
</head>
<body>
  <div class="max-w-7xl mx-auto p-4 sm:p-6 lg:p-8">
    <header class="mb-8 p-6 bg-blue-600 rounded-xl shadow-lg">
      <h1 class="text-4xl font-extrabold text-white">EmoGo Data Download Portal</h1>
      <p class="mt-2 text-xl text-blue-200">Public access to the collected EmoGo telemetry.</p>
      {{if not .Error}}<p class="mt-2 text-sm text-blue-300">Showing page {{.Page}} of {{.TotalPages}} ({{.TotalRows}} rows total).</p>{{end}}
    </header>

    {{if .Error}}
    <div class="p-6 bg-red-100 border-l-4 border-red-500 text-red-700 rounded-xl">
      <p class="font-bold">Data Unavailable</p>
      <p>{{.Error}}</p>
    </div>
    {{else}}
    <div class="bg-white shadow-xl rounded-xl overflow-hidden">
      <div class="p-6 bg-gray-50 border-b border-gray-200 flex items-center justify-between">
        <h2 class="text-2xl font-semibold text-gray-800">Collected Data</h2>
        <a href="/download-csv" class="px-4 py-2 bg-blue-600 text-white rounded-lg hover:bg-blue-700 font-medium">Download CSV</a>
      </div>

      <div class="overflow-x-auto">
        <table class="min-w-full divide-y divide-gray-200">
          <thead class="bg-gray-100">
            <tr>
              <th class="px-4 py-3 text-left text-xs font-medium text-gray-500 uppercase tracking-wider">User ID</th>
              <th class="px-4 py-3 text-left text-xs font-medium text-gray-500 uppercase tracking-wider">Captured At</th>
              <th class="px-4 py-3 text-left text-xs font-medium text-gray-500 uppercase tracking-wider">Sentiment</th>
              <th class="px-4 py-3 text-left text-xs font-medium text-gray-500 uppercase tracking-wider">GPS Coords</th>
              <th class="px-4 py-3 text-left text-xs font-medium text-gray-500 uppercase tracking-wider">Vlog Video</th>
            </tr>
          </thead>
          <tbody class="bg-white divide-y divide-gray-200">
            {{range .Rows}}
            <tr class="border-b hover:bg-gray-50">
              <td class="px-4 py-3 text-sm font-medium text-gray-900">{{.UserDisplay}}</td>
              <td class="px-4 py-3 text-sm text-gray-500">{{.CapturedAt}}</td>
              <td class="px-4 py-3 text-sm text-gray-900">
                {{if .HasEmotion}}<span class="font-semibold {{.EmotionColor}}">{{.EmotionLabel}}</span> ({{.EmotionScore}}){{else}}&mdash;{{end}}
              </td>
              <td class="px-4 py-3 text-sm text-gray-500">{{if .HasGPS}}{{.Coordinates}}{{else}}&mdash;{{end}}</td>
              <td class="px-4 py-3 text-sm font-mono text-gray-700">
                {{if .HasVideo}}<a href="{{.VideoReference}}" class="text-blue-500 hover:text-blue-700 font-medium" target="_blank" rel="noopener">Download/Play</a>{{else}}&mdash;{{end}}
              </td>
            </tr>
            {{else}}
            <tr>
              <td colspan="5" class="px-4 py-12 text-center text-gray-500 text-lg">
                <p>No data collected yet.</p>
              </td>
            </tr>
            {{end}}
          </tbody>
        </table>
      </div>

      <div class="p-4 bg-gray-50 border-t border-gray-200 flex items-center justify-between text-sm">
        {{if .HasPrev}}<a href="/data-download?page={{.PrevPage}}&page_size={{.PageSize}}" class="text-blue-600 hover:text-blue-800 font-medium">&larr; Previous</a>{{else}}<span></span>{{end}}
        {{if .HasNext}}<a href="/data-download?page={{.NextPage}}&page_size={{.PageSize}}" class="text-blue-600 hover:text-blue-800 font-medium">Next &rarr;</a>{{else}}<span></span>{{end}}
      </div>
    </div>
    {{end}}

    <footer class="mt-10 pt-6 border-t border-gray-200 text-center text-sm text-gray-500">
      <p>&copy; {{.Year}} EmoGo Backend.</p>
    </footer>
  </div>
</body>
</html>
`
