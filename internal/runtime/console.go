package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/ports"
	"github.com/samber/lo"
)

const (
	wallCapacity = 100

	commandSend   = "/send"
	commandSub    = "/sub"
	commandPub    = "/pub"
	commandUsers  = "/users"
	commandTopics = "/topics"
	commandSubs   = "/subs"
	commandWall   = "/wall"
	commandHelp   = "/help"
	commandQuit   = "/quit"
)

var errQuit = errors.New("quit requested")

type (
	// Messenger is the part of the messaging client the console drives.
	Messenger interface {
		Identity() string
		SendDirect(ctx context.Context, target, body string) error
		PublishToTopic(ctx context.Context, topic, body string) error
		Subscribe(ctx context.Context, topic string) error
		Subscriptions() []string
		IsSubscribed(topic string) bool
	}

	// Console is a line-oriented chat front end. Commands are read from one goroutine while
	// incoming envelopes are displayed from another, so output is serialized.
	Console struct {
		messenger Messenger
		directory ports.Directory
		out       io.Writer

		outMutex  sync.Mutex
		wallMutex sync.Mutex
		walls     map[string][]string
	}
)

func NewConsole(messenger Messenger, directory ports.Directory, out io.Writer) *Console {
	return &Console{
		messenger: messenger,
		directory: directory,
		out:       out,
		walls:     make(map[string][]string),
	}
}

// Run executes the commands read from in until it is exhausted, /quit is entered or ctx ends.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	c.printf("logged in as %s, type %s for the list of commands\n", c.messenger.Identity(), commandHelp)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}

			if err := c.Execute(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}

				c.printf("error: %v\n", err)
			}
		}
	}
}

// Execute runs one command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	command, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch command {
	case commandSend:
		target, body, ok := splitArgs(args)
		if !ok {
			return fmt.Errorf("usage: %s <user> <message>", commandSend)
		}

		if err := c.messenger.SendDirect(ctx, target, body); err != nil {
			return err
		}

		c.printf("you to %s: %s\n", target, body)

	case commandSub:
		if args == "" {
			return fmt.Errorf("usage: %s <topic>", commandSub)
		}

		if err := c.messenger.Subscribe(ctx, args); err != nil {
			return err
		}

		c.printf("subscribed to %s\n", args)

	case commandPub:
		topic, body, ok := splitArgs(args)
		if !ok {
			return fmt.Errorf("usage: %s <topic> <message>", commandPub)
		}

		if err := c.messenger.PublishToTopic(ctx, topic, body); err != nil {
			return err
		}

		c.printf("published to %s\n", topic)

	case commandUsers:
		users := lo.Without(c.directory.ListIdentities(ctx), c.messenger.Identity())
		c.printList("users", users)

	case commandTopics:
		topics := lo.Map(c.directory.ListTopics(ctx), func(topic string, _ int) string {
			if c.messenger.IsSubscribed(topic) {
				return topic + " (subscribed)"
			}

			return topic
		})
		c.printList("topics", topics)

	case commandSubs:
		c.printList("subscriptions", c.messenger.Subscriptions())

	case commandWall:
		if args == "" {
			return fmt.Errorf("usage: %s <topic>", commandWall)
		}

		if !c.messenger.IsSubscribed(args) {
			return fmt.Errorf("subscribe to %q first", args)
		}

		wall := c.Wall(args)
		if len(wall) == 0 {
			c.printf("[%s] no messages yet\n", args)

			return nil
		}

		c.printList("wall of "+args, wall)

	case commandHelp:
		c.printf("%s <user> <message>\n%s <topic>\n%s <topic> <message>\n%s\n%s\n%s\n%s <topic>\n%s\n",
			commandSend, commandSub, commandPub, commandUsers, commandTopics, commandSubs, commandWall, commandQuit)

	case commandQuit:
		return errQuit

	default:
		return fmt.Errorf("unknown command %q, type %s", command, commandHelp)
	}

	return nil
}

// Display prints an incoming envelope. Topic messages are kept on the topic wall and shown
// only while the topic is subscribed.
func (c *Console) Display(_ context.Context, envelope domain.Envelope) {
	switch envelope.Kind {
	case domain.KindDirect:
		c.printf("%s\n", envelope)

	case domain.KindTopic:
		if !c.messenger.IsSubscribed(envelope.Topic) {
			return
		}

		c.appendWall(envelope.Topic, envelope.String())
		c.printf("%s\n", envelope)

	default:
		c.printf("%s\n", envelope.Raw)
	}
}

// Wall returns the topic messages received for topic, oldest first.
func (c *Console) Wall(topic string) []string {
	c.wallMutex.Lock()
	defer c.wallMutex.Unlock()

	return slices.Clone(c.walls[topic])
}

func (c *Console) appendWall(topic, line string) {
	c.wallMutex.Lock()
	defer c.wallMutex.Unlock()

	wall := append(c.walls[topic], line)
	if len(wall) > wallCapacity {
		wall = wall[len(wall)-wallCapacity:]
	}

	c.walls[topic] = wall
}

func (c *Console) printList(title string, items []string) {
	if len(items) == 0 {
		c.printf("%s: none\n", title)

		return
	}

	c.printf("%s:\n  %s\n", title, strings.Join(items, "\n  "))
}

func (c *Console) printf(format string, args ...any) {
	c.outMutex.Lock()
	defer c.outMutex.Unlock()

	_, _ = fmt.Fprintf(c.out, format, args...)
}

func splitArgs(args string) (string, string, bool) {
	first, rest, ok := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)

	return first, rest, ok && first != "" && rest != ""
}
