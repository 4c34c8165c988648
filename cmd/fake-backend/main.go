package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Nova", "Raven", "Orion", "Quantum", "Spark",
}

var resources = []string{"iron", "silver", "gold", "platinum", "fuel"}

func getPlayerName(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

func makePlayers(n int, listFormat bool) []map[string]interface{} {
	players := make([]map[string]interface{}, n)
	for i := range players {
		player := map[string]interface{}{
			"playerId":        uuid.NewString(),
			"name":            getPlayerName(i),
			"currentPlanetId": nil,
		}
		if rand.Intn(3) > 0 {
			player["currentPlanetId"] = rand.Intn(50) + 1
		}

		if listFormat {
			inventory := []map[string]interface{}{}
			for _, r := range resources {
				inventory = append(inventory, map[string]interface{}{"resource_type": r, "amount": rand.Intn(20)})
			}
			player["inventory"] = inventory
		} else {
			inventory := map[string]int{}
			for _, r := range resources {
				inventory[r] = rand.Intn(20)
			}
			player["inventory"] = inventory
		}
		players[i] = player
	}
	return players
}

// A stand-in for the game backend, serving random players on /players
func main() {
	addr := flag.String("addr", ":9090", "Listen address")
	count := flag.Int("players", 25, "Number of players to serve")
	listFormat := flag.Bool("list-inventory", false, "Serve inventories in the deprecated list shape")
	failRate := flag.Int("fail-rate", 0, "Percentage of requests answered with 503")
	flag.Parse()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Get("/players", func(w http.ResponseWriter, r *http.Request) {
		if *failRate > 0 && rand.Intn(100) < *failRate {
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(makePlayers(*count, *listFormat))
	})

	log.Printf("fake backend listening on %s with %d players", *addr, *count)
	log.Fatal(http.ListenAndServe(*addr, r))
}
