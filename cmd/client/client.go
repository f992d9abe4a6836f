// Command client is a thin CLI over the tcpjson transport: it sends one
// Command as a JSON line per invocation and prints whatever Messages the
// connection receives back until interrupted.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the exchange server")
	player := flag.String("player", "", "player name (compulsory)")
	password := flag.String("password", "", "password, for the new_player action")
	action := flag.String("action", "join_room", "create_room | delete_room | new_player | delete_player | "+
		"join_room | leave_room | start_game | new_instrument | reveal_card | settle_game | new_order | cancel_order")
	room := flag.String("room", "table-1", "room name")
	instrument := flag.String("instrument", "A", "instrument symbol")
	direction := flag.String("direction", "bid", "bid | ask")
	price := flag.Int64("price", 0, "limit price")
	size := flag.Int64("size", 0, "order size")
	instrumentType := flag.String("type", "CALL", "CALL | PUT, for new_instrument")
	strike := flag.Int64("strike", 0, "strike price, for new_instrument")
	cardRank := flag.Int("card-rank", 0, "card rank 1-13, for reveal_card")
	cardSuit := flag.String("card-suit", "S", "card suit letter (S, H, C, D), for reveal_card")

	flag.Parse()

	if *player == "" {
		fmt.Println("Error: -player is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *player)

	go readMessages(conn)

	cmd, err := buildCommand(*action, *player, *password, *room, *instrument, *direction,
		*price, *size, *instrumentType, *strike, *cardRank, *cardSuit)
	if err != nil {
		log.Fatal(err)
	}

	line, err := json.Marshal(cmd)
	if err != nil {
		log.Fatalf("encoding command: %v", err)
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		log.Fatalf("sending command: %v", err)
	}
	fmt.Printf("-> %s\n", line)

	fmt.Println("listening for replies... (Ctrl+C to exit)")
	select {}
}

// buildCommand maps CLI flags onto one wire command object. This client
// only ever sends one command per invocation, so it builds the map
// directly rather than round-tripping through protocol.Command — a
// script driving several commands in sequence would pipe JSON lines to
// this server on its own connection instead.
func buildCommand(action, player, password, room, instrument, direction string,
	price, size int64, instrumentType string, strike int64, cardRank int, cardSuit string,
) (map[string]any, error) {
	base := map[string]any{"type": action, "player": player}

	switch action {
	case "create_room", "delete_room", "join_room", "leave_room", "start_game", "settle_game":
		base["room"] = room
	case "new_player":
		base["password"] = password
	case "delete_player":
		// player only
	case "new_instrument":
		base["room"] = room
		base["name"] = instrument
		base["option_type"] = instrumentType
		if strike > 0 {
			base["strike"] = strike
		}
	case "reveal_card":
		base["room"] = room
		base["card"] = map[string]any{"rank": cardRank, "suit": strings.ToUpper(cardSuit)}
	case "new_order":
		base["room"] = room
		base["instrument"] = instrument
		base["direction"] = direction
		base["price"] = price
		base["size"] = size
	case "cancel_order":
		base["room"] = room
		base["instrument"] = instrument
		base["direction"] = direction
		base["price"] = price
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
	return base, nil
}

// readMessages prints every newline-delimited JSON Message the server
// sends back, unparsed: this CLI is a debugging tool, not a game client,
// so raw JSON is more useful than a decoded struct dump.
func readMessages(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Printf("<- %s\n", scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Printf("connection lost: %v", err)
	}
	os.Exit(0)
}
