package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/hongjun500/mcpd-go/internal/content"
	"github.com/hongjun500/mcpd-go/internal/protocol"
)

// 交互式调试客户端：一行一条 JSON 帧的 TCP 对话。
//
//	invoke <tool> [json]    调用工具
//	sub <eventType>         订阅事件
//	unsub <eventType>       退订事件
//	get <path>              读资源
//	set <path> <json>       写资源
//	ping                    探活
//	raw <json>              原样发送一帧
//	quit                    道别并退出
func main() {
	addr := flag.String("addr", "127.0.0.1:9180", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Println("connected:", *addr)

	sessionID := make(chan string, 1)
	go readLoop(conn, sessionID)

	send(conn, &protocol.Message{Kind: protocol.KindHello, MessageID: mid()})
	sid := <-sessionID
	fmt.Println("session:", sid)

	sc := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); sc.Scan(); fmt.Print("> ") {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		m := &protocol.Message{MessageID: mid(), SessionID: sid}
		switch fields[0] {
		case "invoke":
			if len(fields) < 2 {
				fmt.Println("usage: invoke <tool> [json]")
				continue
			}
			m.Kind = protocol.KindToolInvoke
			m.ToolName = fields[1]
			if len(fields) > 2 {
				c, err := content.FromJSON([]byte(strings.Join(fields[2:], " ")))
				if err != nil {
					fmt.Println("bad params:", err)
					continue
				}
				m.Content = c
			}
		case "sub":
			m.Kind = protocol.KindEventSubscribe
			m.EventType = arg(fields, 1)
		case "unsub":
			m.Kind = protocol.KindEventUnsubscribe
			m.EventType = arg(fields, 1)
		case "get":
			m.Kind = protocol.KindResourceGet
			m.ResourcePath = arg(fields, 1)
		case "set":
			if len(fields) < 3 {
				fmt.Println("usage: set <path> <json>")
				continue
			}
			m.Kind = protocol.KindResourceSet
			m.ResourcePath = fields[1]
			c, err := content.FromJSON([]byte(strings.Join(fields[2:], " ")))
			if err != nil {
				fmt.Println("bad value:", err)
				continue
			}
			m.Content = c
		case "ping":
			m.Kind = protocol.KindPing
		case "raw":
			if _, err := conn.Write(append([]byte(strings.Join(fields[1:], " ")), '\n')); err != nil {
				fmt.Println("write:", err)
				return
			}
			continue
		case "quit", "exit":
			m.Kind = protocol.KindGoodbye
			send(conn, m)
			return
		default:
			fmt.Println("unknown command:", fields[0])
			continue
		}
		send(conn, m)
	}
}

func mid() string { return uuid.New().String() }

func arg(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func send(conn net.Conn, m *protocol.Message) {
	frame, err := protocol.EncodeBytes(m)
	if err != nil {
		fmt.Println("encode:", err)
		return
	}
	if _, err := conn.Write(frame); err != nil {
		fmt.Println("write:", err)
	}
}

func readLoop(conn net.Conn, sessionID chan<- string) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			fmt.Println("\nconnection closed:", err)
			os.Exit(0)
		}
		var m protocol.Message
		if err := json.Unmarshal(line, &m); err != nil {
			fmt.Printf("\n<< unparseable frame: %s", line)
			continue
		}
		if m.Kind == protocol.KindWelcome {
			select {
			case sessionID <- m.SessionID:
			default:
			}
		}
		pretty, _ := json.MarshalIndent(&m, "", "  ")
		fmt.Printf("\n<< %s\n> ", pretty)
	}
}
