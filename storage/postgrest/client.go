// Package postgrest talks to a hosted backend exposing PostgREST (/rest/v1) and GoTrue (/auth/v1) endpoints.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/schoolhub/core"
)

const (
	restPath = "/rest/v1/"
	authPath = "/auth/v1/"
)

// Client is the core.Store of the hosted backend. Requests carry the access token found in their context,
// so row level security applies to the signed-in user.
type Client struct {
	baseURL string
	anonKey string
	http    *rest.Client
}

var _ core.Store = (*Client)(nil)

func New(conf *core.Config) *Client {
	return NewWithHTTPClient(conf.Backend.URL, conf.Backend.AnonKey, http.DefaultClient)
}

func NewWithHTTPClient(baseURL, anonKey string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		anonKey: anonKey,
		http:    &rest.Client{HTTPClient: hc},
	}
}

func (c *Client) headers(ctx context.Context) map[string]string {
	token := core.AccessToken(ctx)
	if token == "" {
		token = c.anonKey
	}
	return map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}

// send performs the request and decodes a JSON answer into dest (if not nil).
// Non-2xx answers become core.BackendError.
func (c *Client) send(ctx context.Context, req rest.Request, dest interface{}) error {
	resp, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backendError(resp)
	}
	if dest == nil || resp.Body == "" {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(resp.Body), dest), "decoding response")
}

func backendError(resp *rest.Response) error {
	var body struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal([]byte(resp.Body), &body)
	msg := body.Message
	for _, m := range []string{body.Msg, body.ErrorDescription, body.Error} {
		if msg == "" {
			msg = m
		}
	}
	return core.BackendError{Status: resp.StatusCode, Message: msg}
}

// filterValue renders v the way PostgREST expects it in a filter.
func filterValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	}
	if data, err := json.Marshal(v); err == nil {
		var decoded interface{}
		if json.Unmarshal(data, &decoded) == nil {
			switch d := decoded.(type) {
			case nil:
				return "null"
			case string:
				return d
			}
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

func inList(vals []string) string {
	quoted := make([]string, 0, len(vals))
	for _, v := range vals {
		quoted = append(quoted, `"`+strings.ReplaceAll(v, `"`, `\"`)+`"`)
	}
	return "(" + strings.Join(quoted, ",") + ")"
}

func filterParams(params url.Values, filters []core.Filter) {
	for _, f := range filters {
		switch f.Op {
		case core.OpIn:
			vals, _ := f.Value.([]string)
			params.Add(f.Column, "in."+inList(vals))
		case core.OpEq, core.OpNeq:
			v := filterValue(f.Value)
			op := f.Op
			if v == "null" {
				op = "is"
				if f.Op == core.OpNeq {
					op = "not.is"
				}
			}
			params.Add(f.Column, op+"."+v)
		default:
			params.Add(f.Column, f.Op+"."+filterValue(f.Value))
		}
	}
}

func (c *Client) tableURL(table string, params url.Values) string {
	u := c.baseURL + restPath + table
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func queryParams(q core.Query) url.Values {
	params := url.Values{"select": {"*"}}
	filterParams(params, q.Filters)
	if len(q.Orderings) > 0 {
		ords := make([]string, 0, len(q.Orderings))
		for _, o := range q.Orderings {
			dir := "desc"
			if o.Ascending {
				dir = "asc"
			}
			ords = append(ords, o.Field+"."+dir)
		}
		params.Set("order", strings.Join(ords, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprint(q.Limit))
	}
	return params
}

func (c *Client) Select(ctx context.Context, table string, q core.Query, dest interface{}) error {
	req := rest.Request{Method: rest.Get, BaseURL: c.tableURL(table, queryParams(q)), Headers: c.headers(ctx)}
	return errors.Wrapf(c.send(ctx, req, dest), "selecting %s", table)
}

func (c *Client) Get(ctx context.Context, table string, q core.Query, dest interface{}) error {
	q.Limit = 1
	var rows []json.RawMessage
	req := rest.Request{Method: rest.Get, BaseURL: c.tableURL(table, queryParams(q)), Headers: c.headers(ctx)}
	if err := c.send(ctx, req, &rows); err != nil {
		return errors.Wrapf(err, "getting %s", table)
	}
	if len(rows) == 0 {
		return core.ErrNotFound
	}
	return errors.Wrap(json.Unmarshal(rows[0], dest), "decoding row")
}

func (c *Client) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	body, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "encoding row")
	}
	headers := c.headers(ctx)
	headers["Prefer"] = "return=representation"
	req := rest.Request{Method: rest.Post, BaseURL: c.tableURL(table, nil), Headers: headers, Body: body}

	var rows []json.RawMessage
	if err := c.send(ctx, req, &rows); err != nil {
		return errors.Wrapf(err, "inserting into %s", table)
	}
	if dest == nil || len(rows) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(rows[0], dest), "decoding row")
}

func (c *Client) Update(ctx context.Context, table string, filters []core.Filter, patch map[string]interface{}, dest interface{}) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return errors.Wrap(err, "encoding patch")
	}
	params := url.Values{}
	filterParams(params, filters)
	headers := c.headers(ctx)
	headers["Prefer"] = "return=representation"
	req := rest.Request{Method: rest.Patch, BaseURL: c.tableURL(table, params), Headers: headers, Body: body}

	var rows []json.RawMessage
	if err := c.send(ctx, req, &rows); err != nil {
		return errors.Wrapf(err, "updating %s", table)
	}
	if len(rows) == 0 {
		return core.ErrNotFound
	}
	if dest == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(rows[0], dest), "decoding row")
}

func (c *Client) Delete(ctx context.Context, table string, filters []core.Filter) (int, error) {
	params := url.Values{}
	filterParams(params, filters)
	headers := c.headers(ctx)
	headers["Prefer"] = "return=representation"
	req := rest.Request{Method: rest.Delete, BaseURL: c.tableURL(table, params), Headers: headers}

	var rows []json.RawMessage
	if err := c.send(ctx, req, &rows); err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", table)
	}
	return len(rows), nil
}
