// Command stream_tail follows one stream record from a running server and
// prints text as it grows. With -start it also triggers production.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
)

type streamMessage struct {
	Data struct {
		Text       string `json:"text"`
		Status     string `json:"status"`
		Generation int64  `json:"generation"`
	} `json:"data"`
	Finished bool `json:"finished"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:3000", "server base url")
	id := flag.String("id", "", "stream record id")
	start := flag.Bool("start", false, "POST /start-stream and print the live body")
	flag.Parse()

	if *id == "" {
		color.Red("usage: stream_tail -id <stream id> [-base url] [-start]")
		os.Exit(2)
	}

	var err error
	if *start {
		err = startStream(*baseURL, *id)
	} else {
		err = tail(*baseURL, *id)
	}
	if err != nil {
		color.Red("\nFailed: %v", err)
		os.Exit(1)
	}
}

func startStream(baseURL, id string) error {
	body, _ := json.Marshal(map[string]string{"streamId": id})
	resp, err := http.Post(baseURL+"/start-stream", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	color.Cyan("Streaming %s\n", id)
	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			color.New(color.FgGreen).Print(string(buf[:n]))
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// tail follows the SSE endpoint and prints only what each snapshot adds.
func tail(baseURL, id string) error {
	resp, err := http.Get(baseURL + "/streams/" + id + "/events")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	color.Cyan("Following %s\n", id)
	var printed string
	var status string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "snapshot":
			var msg streamMessage
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
				color.Yellow("\n[skip] %v", err)
				continue
			}
			if strings.HasPrefix(msg.Data.Text, printed) {
				color.New(color.FgGreen).Print(msg.Data.Text[len(printed):])
			} else {
				color.New(color.FgGreen).Print("\n" + msg.Data.Text)
			}
			printed = msg.Data.Text
			status = msg.Data.Status
		case strings.HasPrefix(line, "data: ") && event == "end":
			fmt.Println()
			switch status {
			case "done":
				color.Green("[%s]", status)
			default:
				color.Red("[%s]", status)
			}
			return nil
		}
	}
	return scanner.Err()
}
