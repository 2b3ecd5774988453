// Command smoke_api walks a running API through one full analysis conversation.
//
//	go run ./scripts/smoke_api -base http://localhost:3000/api -file sales.csv "total sales by category"
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

var baseURL string

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func send(req *http.Request) (map[string]interface{}, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("status %s: %s", resp.Status, body)
	}
	if resp.StatusCode >= 300 {
		return out, fmt.Errorf("status %s: %v", resp.Status, out["message"])
	}
	color.Green("Status: %s", resp.Status)
	return out, nil
}

func sendJSON(method, path string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return send(req)
}

func sendFile(path, file string) (map[string]interface{}, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(file))
	if err != nil {
		return nil, err
	}
	part.Write(data)
	w.Close()

	req, err := http.NewRequest("POST", baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return send(req)
}

func must(out map[string]interface{}, err error) map[string]interface{} {
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(out)
	return out
}

func main() {
	file := flag.String("file", "sales.csv", "dataset to upload")
	flag.StringVar(&baseURL, "base", "http://localhost:3000/api", "API base URL")
	flag.Parse()

	questions := flag.Args()
	if len(questions) == 0 {
		questions = []string{"What are the column names?"}
	}

	color.Cyan("🚀 Starting analysis API smoke run\n")

	color.Yellow("\n1. Create session")
	created := must(sendJSON("POST", "/analysis/v1/sessions", nil))
	data, _ := created["data"].(map[string]interface{})
	sessionID, _ := data["id"].(string)
	if sessionID == "" {
		color.Red("No session id in response")
		os.Exit(1)
	}
	sessionPath := "/analysis/v1/sessions/" + sessionID

	color.Yellow("\n2. Upload %s", *file)
	must(sendFile(sessionPath+"/upload", *file))

	for i, q := range questions {
		color.Yellow("\n%d. Ask %q", i+3, q)
		must(sendJSON("POST", sessionPath+"/ask", map[string]string{"question": q}))
	}

	color.Yellow("\nTranscript")
	must(sendJSON("GET", sessionPath+"/transcript", nil))

	color.Yellow("\nClose session")
	must(sendJSON("DELETE", sessionPath, nil))

	color.Cyan("\n✅ Smoke run finished")
}
