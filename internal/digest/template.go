// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package digest

// digestTemplate is the built-in HTML template for the daily release digest.
// Each optional field renders its own row only when present; no placeholder
// text is ever substituted for missing data.
const digestTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Lançamentos do Dia</title>
  <style>
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; color: #333; background: #f4f4f7; padding: 20px; }
    .container { max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 12px; overflow: hidden; }
    .header { background: #ee5a24; color: white; text-align: center; padding: 32px 20px; }
    .header h1 { margin: 0 0 8px 0; font-size: 1.8em; }
    .header .date { opacity: 0.9; }
    .content { padding: 24px; }
    .movie-card { background: #f8f9fa; border-radius: 8px; padding: 20px; margin-bottom: 20px; border-left: 4px solid #ee5a24; }
    .movie-title { font-size: 1.3em; font-weight: 700; color: #2c3e50; margin-bottom: 12px; }
    .movie-poster { text-align: center; margin: 12px 0; }
    .movie-poster img { max-width: 200px; border-radius: 6px; }
    .detail-row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #eee; }
    .detail-row:last-child { border-bottom: none; }
    .detail-label { font-weight: 600; color: #666; }
    .footer { background: #2c3e50; color: #bdc3c7; text-align: center; padding: 20px; font-size: 0.9em; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>&#127916; Lan&ccedil;amentos do Dia</h1>
      <div class="date">{{.Date}}</div>
    </div>
    <div class="content">
      <p>Confira os filmes que estreiam hoje:</p>
{{range .Items}}      <div class="movie-card">
        <div class="movie-title">{{.Title}}</div>
{{if .PosterURL}}        <div class="movie-poster"><img src="{{.PosterURL}}" alt="Poster de {{.Title}}"></div>
{{end}}{{if .Genres}}        <div class="detail-row"><span class="detail-label">G&ecirc;nero</span><span>{{joinGenres .Genres}}</span></div>
{{end}}{{if .Situation}}        <div class="detail-row"><span class="detail-label">Situa&ccedil;&atilde;o</span><span>{{.Situation}}</span></div>
{{end}}{{if .ReleaseDate}}        <div class="detail-row"><span class="detail-label">Data de Lan&ccedil;amento</span><span>{{formatDate .ReleaseDate}}</span></div>
{{end}}{{if .RatingPercentage}}        <div class="detail-row"><span class="detail-label">Avalia&ccedil;&atilde;o</span><span>{{formatPercent .RatingPercentage}}</span></div>
{{end}}      </div>
{{end}}    </div>
    <div class="footer">
      <p>Marquee &mdash; fique por dentro dos lan&ccedil;amentos.</p>
    </div>
  </div>
</body>
</html>
`
