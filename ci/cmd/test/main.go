package main

import (
	"context"
	"log"
	"os"

	"dagger.io/dagger"
)

func main() {
	ctx := context.Background()

	// Initialize the Dagger client
	client, err := dagger.Connect(ctx, dagger.WithLogOutput(os.Stdout))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	// Mount the repo from the host at /src in a Go container, excluding the CI
	// pipeline itself.
	source := client.Container().
		From("golang:1.20").
		WithDirectory(
			"/src",
			client.Host().Directory("../../../"), dagger.ContainerWithDirectoryOpts{
				Exclude: []string{"ci/"},
			},
		)

	runner := source.WithWorkdir("/src")

	// Run application tests
	out, err := runner.WithExec([]string{"go", "test", "./models/...", "./services/...", "./common/...", "./api/..."}).Stderr(ctx)
	if err != nil {
		log.Fatalf("test: error running tests [%v]", err)
	}
	log.Printf("test: finished running tests [%s]", out)
}
