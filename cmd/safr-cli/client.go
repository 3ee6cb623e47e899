package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type cityView struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type rankingView struct {
	CityID        uint      `json:"city_id"`
	PersonalScore float64   `json:"personal_score"`
	City          *cityView `json:"city"`
}

// apiClient talks to the ranking API with a bearer token.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) login(username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := c.http.PostForm(c.baseURL+"/token", form)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("incorrect username or password")
	}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("invalid token response: %w", err)
	}
	c.token = result.AccessToken
	return nil
}

func (c *apiClient) listRankings(sortDesc bool) ([]rankingView, error) {
	var result struct {
		Data []rankingView `json:"data"`
	}
	path := "/rankings/me?sort_desc=" + strconv.FormatBool(sortDesc)
	if err := c.do(http.MethodGet, path, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *apiClient) putRanking(cityID uint, score float64) error {
	body := map[string]float64{"personal_score": score}
	return c.do(http.MethodPut, fmt.Sprintf("/rankings/cities/%d", cityID), body, http.StatusOK, nil)
}

func (c *apiClient) deleteRanking(cityID uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/rankings/cities/%d", cityID), nil, http.StatusNoContent, nil)
}

func (c *apiClient) do(method, path string, body interface{}, want int, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s", apiErr.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
