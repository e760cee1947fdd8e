package dashboard

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/dyluth/encoding-music/internal/sparql"
	"github.com/dyluth/encoding-music/internal/timespec"
	"go.uber.org/zap"
)

// sparqlPage is the data behind templates/sparql.html.
type sparqlPage struct {
	Templates []sparql.Template
	Selected  sparql.Template
	Form      sparqlForm
	MinDate   string
	MaxDate   string
	Query     string
	URL       string
	Link      template.HTML
	Error     string
}

// sparqlForm echoes the submitted inputs back into the form.
type sparqlForm struct {
	Option       string
	Term         string
	LimitEnabled bool
	Limit        string
	Date         string
	From         string
	To           string
}

func parseSPARQLForm(q url.Values) sparqlForm {
	return sparqlForm{
		Option:       strings.TrimSpace(q.Get("option")),
		Term:         q.Get("term"),
		LimitEnabled: q.Get("limit_enabled") != "",
		Limit:        strings.TrimSpace(q.Get("limit")),
		Date:         strings.TrimSpace(q.Get("date")),
		From:         strings.TrimSpace(q.Get("from")),
		To:           strings.TrimSpace(q.Get("to")),
	}
}

// request converts the form into a generator request. Unset dates stay zero
// so the generator reports them as missing.
func (f sparqlForm) request() (sparql.Request, error) {
	req := sparql.Request{
		Option:       f.Option,
		Term:         f.Term,
		LimitEnabled: f.LimitEnabled,
		Limit:        f.Limit,
	}
	var err error
	if f.Date != "" {
		if req.Date, err = timespec.ParseDate(f.Date); err != nil {
			return req, errors.Join(sparql.ErrInvalidInput, err)
		}
	}
	if f.From != "" {
		if req.From, err = timespec.ParseDate(f.From); err != nil {
			return req, errors.Join(sparql.ErrInvalidInput, err)
		}
	}
	if f.To != "" {
		if req.To, err = timespec.ParseDate(f.To); err != nil {
			return req, errors.Join(sparql.ErrInvalidInput, err)
		}
	}
	return req, nil
}

func sparqlStatus(err error) int {
	if errors.Is(err, sparql.ErrUnknownOption) ||
		errors.Is(err, sparql.ErrMissingInput) ||
		errors.Is(err, sparql.ErrInvalidInput) ||
		errors.Is(err, sparql.ErrDateOutOfRange) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// generate returns the query and its encoded endpoint URL for a form.
func (s *Server) generate(f sparqlForm) (string, string, error) {
	req, err := f.request()
	if err != nil {
		return "", "", err
	}
	query, err := sparql.Generate(req, s.now())
	if err != nil {
		return "", "", err
	}
	return query, sparql.EncodedURL(s.cfg.SPARQL.Endpoint, query), nil
}

func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	form := parseSPARQLForm(r.URL.Query())
	lo, hi := sparql.DateBounds(s.now())

	page := sparqlPage{
		Templates: sparql.Templates(),
		Form:      form,
		MinDate:   lo.Format(timespec.DateLayout),
		MaxDate:   hi.Format(timespec.DateLayout),
	}
	page.Selected = page.Templates[0]
	if form.Option == "" {
		s.render(w, http.StatusOK, "sparql.html", page)
		return
	}

	tpl, err := sparql.Lookup(form.Option)
	if err == nil {
		page.Selected = tpl
		page.Form.Option = tpl.Name
	}

	query, link, err := s.generate(form)
	if err != nil {
		page.Error = err.Error()
		s.render(w, sparqlStatus(err), "sparql.html", page)
		return
	}
	page.Query = query
	page.URL = link
	page.Link = sparql.Link(link)
	s.render(w, http.StatusOK, "sparql.html", page)
}

func (s *Server) handleSPARQLJSON(w http.ResponseWriter, r *http.Request) {
	form := parseSPARQLForm(r.URL.Query())
	query, link, err := s.generate(form)
	if err != nil {
		writeError(w, sparqlStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Option string `json:"option"`
		Query  string `json:"query"`
		URL    string `json:"url"`
	}{Option: form.Option, Query: query, URL: link})
}

func (s *Server) handleSPARQLDocs(w http.ResponseWriter, r *http.Request) {
	page := struct {
		URL   string
		HTML  template.HTML
		Error string
	}{URL: s.cfg.SPARQL.DocsURL}

	html, err := sparql.Docs(r.Context(), s.fetcher, s.cfg.SPARQL.DocsURL)
	if err != nil {
		s.logger.Warn("SPARQL guide unavailable", zap.String("url", s.cfg.SPARQL.DocsURL), zap.Error(err))
		page.Error = err.Error()
		s.render(w, http.StatusBadGateway, "docs.html", page)
		return
	}
	page.HTML = html
	s.render(w, http.StatusOK, "docs.html", page)
}
