package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"dagger.io/dagger"

	"github.com/alexflint/go-arg"

	servi "github.com/servimatch/go-servi"
)

const imageName = "servi-agent"

func main() {
	var args struct {
		Registry string `arg:"env:DOCKER_REGISTRY,required" help:"container registry host"`
		Username string `arg:"env:DOCKER_USERNAME,required" help:"registry user"`
		Token    string `arg:"env:DOCKER_TOKEN,required" help:"registry auth token"`
	}
	arg.MustParse(&args)

	ctx := context.Background()

	client, err := dagger.Connect(ctx, dagger.WithLogOutput(os.Stdout))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	envTag := os.Getenv(servi.Env_EnvTag)
	container := client.Host().Directory(".").
		DockerBuild(dagger.DirectoryDockerBuildOpts{
			Platform:  "linux/amd64",
			BuildArgs: []dagger.BuildArg{{Name: servi.Env_EnvTag, Value: envTag}},
		})
	tags := []string{
		envTag,
		os.Getenv(servi.Env_Branch),
		os.Getenv(servi.Env_Sha),
		os.Getenv(servi.Env_ShaTag),
	}
	// Only production images get the "latest" tag
	if envTag == servi.EnvTag_Prod {
		tags = append(tags, "latest")
	}
	if err = pushImage(ctx, client, container, args.Registry, args.Username, args.Token, tags); err != nil {
		log.Fatalf("build: failed to push image: %v", err)
	}
}

func pushImage(ctx context.Context, client *dagger.Client, container *dagger.Container, registry, username, token string, tags []string) error {
	authToken := client.SetSecret("RegistryAuthToken", token)
	container = container.WithRegistryAuth(registry, username, authToken)
	for _, tag := range tags {
		if len(tag) == 0 {
			continue
		}
		if _, err := container.Publish(ctx, fmt.Sprintf("%s/%s:%s", registry, imageName, tag)); err != nil {
			return err
		}
	}
	return nil
}
