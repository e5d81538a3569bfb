// Command taskpilot-chat is a terminal client for the chat_stream endpoint.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type userInput struct {
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

type responseModel struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
}

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/chat_stream", "service websocket URL")
		userID   = flag.String("user", "", "user id (required)")
		threadID = flag.String("thread", "", "thread id (random if empty)")
	)
	flag.Parse()

	log := logrus.New()

	if *userID == "" {
		log.Fatal("missing -user flag")
	}
	if *threadID == "" {
		*threadID = uuid.NewString()
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to connect")
	}
	defer conn.Close()

	fmt.Printf("connected to %s (thread %s), type a message or /quit\n", *url, *threadID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}

		req := userInput{Message: line, UserID: *userID, ThreadID: *threadID}
		if err := conn.WriteJSON(req); err != nil {
			log.WithError(err).Fatal("write failed")
		}

		var resp responseModel
		if err := conn.ReadJSON(&resp); err != nil {
			log.WithError(err).Fatal("read failed")
		}
		if resp.Status != "success" {
			fmt.Printf("error: %s\n", resp.Response)
			continue
		}
		fmt.Println(resp.Response)
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
