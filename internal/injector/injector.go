//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/client"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/server"
)

func InitializeServer(path ConfigPath) (*server.Server, func(), error) {
	wire.Build(ServerSet)
	return nil, nil, nil
}

func InitializeClient(ctx context.Context, path ConfigPath) (*client.Client, func(), error) {
	wire.Build(ClientSet)
	return nil, nil, nil
}
