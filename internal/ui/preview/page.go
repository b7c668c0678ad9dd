// Пакет preview - HTML-страница встроенного предпросмотра файла (templ).
// Разметка выбирается по режиму: изображение с масштабом, видео, аудио,
// встроенный документ или ссылка "открыть в новой вкладке".
package preview

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	domainpreview "github.com/bigkaa/goartstore/drive-module/internal/domain/preview"
)

// PageData - данные страницы.
type PageData struct {
	Name        string
	Mode        domainpreview.Mode
	MIMEType    string
	URL         string
	DownloadURL string
	Zoom        domainpreview.Zoom
}

// Page - страница предпросмотра.
func Page(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := templ.EscapeString(d.Name)
		src := templ.EscapeString(string(templ.URL(d.URL)))

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body{margin:0;font-family:sans-serif;background:#f5f5f5}
header{display:flex;gap:1rem;align-items:center;padding:.75rem 1rem;background:#fff;border-bottom:1px solid #ddd}
main{display:flex;justify-content:center;padding:1rem;overflow:auto}
.zoom button{min-width:2.5rem}
</style>
</head>
<body>
<header><h1 style="font-size:1.1rem;margin:0;flex:1">%s</h1>`, name, name); err != nil {
			return err
		}

		if d.Mode == domainpreview.ModeImage {
			if err := zoomControls(d.Zoom).Render(ctx, w); err != nil {
				return err
			}
		}
		if d.DownloadURL != "" {
			if _, err := fmt.Fprintf(w, `<a href="%s">Скачать</a>`,
				templ.EscapeString(string(templ.URL(d.DownloadURL)))); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</header>\n<main>"); err != nil {
			return err
		}

		if err := body(d, name, src).Render(ctx, w); err != nil {
			return err
		}

		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}

// body - элемент предпросмотра по режиму.
func body(d PageData, name, src string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		mimeType := templ.EscapeString(d.MIMEType)
		var err error
		switch d.Mode {
		case domainpreview.ModeImage:
			_, err = fmt.Fprintf(w,
				`<img id="preview-image" src="%s" alt="%s" style="transform:scale(%s);transform-origin:top center">`,
				src, name, formatFactor(d.Zoom.Factor()))
		case domainpreview.ModeVideo:
			_, err = fmt.Fprintf(w,
				`<video controls preload="metadata" style="max-width:100%%"><source src="%s" type="%s"></video>`,
				src, mimeType)
		case domainpreview.ModeAudio:
			_, err = fmt.Fprintf(w,
				`<audio controls preload="metadata"><source src="%s" type="%s"></audio>`,
				src, mimeType)
		case domainpreview.ModeDocument:
			_, err = fmt.Fprintf(w,
				`<iframe src="%s" title="%s" style="width:100%%;height:85vh;border:0"></iframe>`,
				src, name)
		default:
			_, err = fmt.Fprintf(w,
				`<p>Предпросмотр недоступен. <a href="%s" target="_blank" rel="noopener noreferrer">Открыть в новой вкладке</a></p>`,
				src)
		}
		return err
	})
}

// zoomControls - кнопки масштаба. Границы и шаг совпадают с domain/preview.Zoom.
func zoomControls(z domainpreview.Zoom) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="zoom">
<button type="button" data-zoom="out">−</button>
<span id="zoom-level">%s</span>
<button type="button" data-zoom="in">+</button>
<button type="button" data-zoom="reset">100%%</button>
</div>
<script>
(function(){
var f=%s,min=%s,max=%s,step=%s,init=%s;
function apply(){document.getElementById("preview-image").style.transform="scale("+f+")";document.getElementById("zoom-level").textContent=Math.round(f*100)+"%%";}
document.querySelectorAll("[data-zoom]").forEach(function(b){b.addEventListener("click",function(){
var a=b.getAttribute("data-zoom");
if(a==="in"){f=Math.min(f+step,max)}else if(a==="out"){f=Math.max(f-step,min)}else{f=init}
apply();});});
})();
</script>`,
			templ.EscapeString(z.Percent()),
			formatFactor(z.Factor()),
			formatFactor(domainpreview.ZoomMin),
			formatFactor(domainpreview.ZoomMax),
			formatFactor(domainpreview.ZoomStep),
			formatFactor(domainpreview.ZoomInitial),
		)
		return err
	})
}

func formatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
