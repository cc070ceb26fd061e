package api

import "encoding/json"

// Page is the normalized shape of every list response. The backend's list
// endpoints answer in three envelopes (a bare array, {items,total} and
// {data,total}); consumers only ever see this one.
type Page[T any] struct {
	Items []T
	Total int
}

type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type dataEnvelope[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// DecodePage normalizes a list response body into a Page. A bare array has
// no server-side total, so Total falls back to the item count.
func DecodePage[T any](body []byte) (Page[T], error) {
	var bare []T
	if err := json.Unmarshal(body, &bare); err == nil {
		return Page[T]{Items: bare, Total: len(bare)}, nil
	}

	var withItems itemsEnvelope[T]
	if err := json.Unmarshal(body, &withItems); err == nil && withItems.Items != nil {
		return Page[T]{Items: withItems.Items, Total: withItems.Total}, nil
	}

	var withData dataEnvelope[T]
	if err := json.Unmarshal(body, &withData); err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: withData.Data, Total: withData.Total}, nil
}
