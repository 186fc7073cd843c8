package supabase

import (
	"context"
	"net/http"
	"net/url"
)

// Query reads rows from table into dest. With q.Single, dest receives one
// object and a missing row yields an error matching ErrNotFound.
func (c *Client) Query(ctx context.Context, table string, q *Query, dest interface{}, opts ...CallOption) error {
	if err := validateTable(table); err != nil {
		return err
	}
	values, err := q.Values()
	if err != nil {
		return err
	}

	header := http.Header{}
	if q != nil && q.Single {
		header.Set("Accept", singleObjectMediaType)
	}

	return c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + table,
		query:  values,
		header: header,
	}, dest, collectOptions(opts))
}

// Insert creates one row (data is an object) or many (data is a slice) and
// decodes the created rows into dest.
func (c *Client) Insert(ctx context.Context, table string, data interface{}, dest interface{}, opts ...CallOption) error {
	if err := validateTable(table); err != nil {
		return err
	}
	body, err := jsonBody(data)
	if err != nil {
		return err
	}

	o := collectOptions(opts)
	header := http.Header{}
	header.Set("Prefer", "return=representation")
	values := url.Values{}
	if o.onConflict != "" {
		header.Set("Prefer", "return=representation,resolution=merge-duplicates")
		values.Set("on_conflict", o.onConflict)
	}

	return c.do(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + table,
		query:  values,
		body:   body,
		header: header,
	}, dest, o)
}

// Update patches every row matching filter and decodes the updated rows into dest.
func (c *Client) Update(ctx context.Context, table string, filter Filter, data interface{}, dest interface{}, opts ...CallOption) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if len(filter) == 0 {
		return ErrUnfilteredMutation
	}
	values := url.Values{}
	if err := filter.apply(values); err != nil {
		return err
	}
	body, err := jsonBody(data)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Prefer", "return=representation")

	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   restPrefix + table,
		query:  values,
		body:   body,
		header: header,
	}, dest, collectOptions(opts))
}

// Delete removes every row matching filter.
func (c *Client) Delete(ctx context.Context, table string, filter Filter, opts ...CallOption) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if len(filter) == 0 {
		return ErrUnfilteredMutation
	}
	values := url.Values{}
	if err := filter.apply(values); err != nil {
		return err
	}

	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   restPrefix + table,
		query:  values,
	}, nil, collectOptions(opts))
}

// RPC calls a database function with named params.
func (c *Client) RPC(ctx context.Context, fn string, params interface{}, dest interface{}, opts ...CallOption) error {
	if err := validateTable(fn); err != nil {
		return err
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	body, err := jsonBody(params)
	if err != nil {
		return err
	}

	return c.do(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + "rpc/" + fn,
		body:   body,
	}, dest, collectOptions(opts))
}

// Ping checks that the data API answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix,
	}, nil, callOptions{})
}
