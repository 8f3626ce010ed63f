package main

import (
	"github.com/galdor/go-service/pkg/service"
)

func main() {
	service.Run("raftd", "a raft consensus node with a key-value store on top", NewService())
}
