package server

import "net/http"

// Minimal browser pages for manual use of the API. Kept deliberately
// plain; the service is API-first.

const pageHead = `<meta name="robots" content="noindex, nofollow">
<link rel="stylesheet" href="https://unpkg.com/mvp.css" />`

const homePage = `<html>
  <head>
    <title>NSFW Detect</title>
    ` + pageHead + `
  </head>
  <body>
    <main>
      <h1>NSFW Detect</h1>
      <nav>
        <a href="/detect_form">Detect (full results)</a>
        <a href="/isnude_form">Is Nude? (boolean)</a>
        <a href="/api/list_labels">Label List</a>
      </nav>
    </main>
  </body>
</html>
`

const detectFormPage = `<html>
  <head>
    <title>Detect</title>
    ` + pageHead + `
  </head>
  <body>
    <main>
      <h2>Detect (full results)</h2>
      <form method="post" action="/api/detect" enctype="multipart/form-data">
        <input type="file" name="file" accept="image/*" required />
        <button type="submit">Upload</button>
      </form>
      <p><a href="/">Back</a></p>
    </main>
  </body>
</html>
`

const isnudeFormPage = `<html>
  <head>
    <title>Is Nude?</title>
    ` + pageHead + `
  </head>
  <body>
    <main>
      <h2>Is Nude?</h2>
      <form method="post" action="/api/isnude" enctype="multipart/form-data">
        <input type="file" name="file" accept="image/*" required />
        <button type="submit">Check</button>
      </form>
      <p><a href="/">Back</a></p>
    </main>
  </body>
</html>
`

func servePage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}
}
